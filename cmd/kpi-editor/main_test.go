package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm"
	"github.com/iota-uz/hr-console/modules/hrm/services"
	"github.com/iota-uz/hr-console/pkg/application"
	"github.com/iota-uz/hr-console/pkg/configuration"
	"github.com/iota-uz/hr-console/pkg/server"
)

const seedPath = "../../modules/hrm/infrastructure/persistence/testdata/seed.yaml"

type testAPI struct {
	url  string
	kpis *services.KpiService
}

// newTestAPI serves the hrm module on in-memory storage seeded with
// position 7.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	app := application.New(&application.ApplicationOptions{Logger: logger})
	require.NoError(t, hrm.NewModule(&hrm.ModuleOptions{
		Storage:  configuration.StorageMemory,
		SeedPath: seedPath,
	}).Register(app))

	srv := httptest.NewServer(server.NewHTTPServer(app, nil, nil).Handler())
	t.Cleanup(srv.Close)
	return &testAPI{
		url:  srv.URL + "/hrm/api",
		kpis: app.Service(services.KpiService{}).(*services.KpiService),
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
