package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm/presentation/viewmodels"
)

func TestShow_Table(t *testing.T) {
	api := newTestAPI(t)
	out, err := runCLI(t, "", "--api", api.url, "show", "--position", "7")
	require.NoError(t, err)
	require.Contains(t, out, "position 7")
	require.Contains(t, out, "Revenue Growth")
	require.Contains(t, out, "Quality")
	require.Contains(t, out, "total 100.00%  balanced=yes  targets=yes")
}

func TestShow_JSON(t *testing.T) {
	api := newTestAPI(t)
	out, err := runCLI(t, "", "--api", api.url, "show", "--position", "7", "--format", "json")
	require.NoError(t, err)

	var got viewmodels.PositionKpis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Kpis, 2)
	require.Equal(t, "60.00", *got.Kpis[0].DistributionPercentage)
}

// The yaml output is accepted by validate as-is.
func TestShow_YAMLRoundTripsThroughValidate(t *testing.T) {
	api := newTestAPI(t)
	out, err := runCLI(t, "", "--api", api.url, "show", "--position", "7", "--format", "yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "p7.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	_, err = runCLI(t, "", "validate", "--file", path, "--objectives", seedPath)
	require.NoError(t, err)
}

func TestShow_UnknownFormat(t *testing.T) {
	api := newTestAPI(t)
	_, err := runCLI(t, "", "--api", api.url, "show", "--position", "7", "--format", "csv")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestShow_RejectsNonPositiveTimeout(t *testing.T) {
	api := newTestAPI(t)
	_, err := runCLI(t, "", "--api", api.url, "--timeout", "0s", "show", "--position", "7")
	require.ErrorContains(t, err, "--timeout")
	require.Equal(t, exitUsage, exitCode(err))

	out, err := runCLI(t, "", "--api", api.url, "--timeout", "5s", "show", "--position", "7", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"position_id": 7`)
}
