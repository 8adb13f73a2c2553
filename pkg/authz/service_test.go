package authz

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, mode Mode) *Service {
	t.Helper()
	svc, err := NewService(Config{
		ModelPath:    filepath.Join("testdata", "model.conf"),
		PolicyPath:   filepath.Join("testdata", "policy.csv"),
		FlagProvider: StaticMode(mode),
	})
	require.NoError(t, err)
	return svc
}

func TestServiceAuthorize(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	req := NewRequest("alice", "hrm", ObjectName("hrm", "kpis"), "Update")
	require.NoError(t, svc.Authorize(context.Background(), req))
}

func TestServiceAuthorizeDenied(t *testing.T) {
	svc := newTestService(t, ModeEnforce)
	req := NewRequest(SubjectForUser("bob"), "hrm", ObjectName("hrm", "kpis"), "update")
	err := svc.Authorize(context.Background(), req)
	require.ErrorIs(t, err, ErrForbidden)

	var fe *ForbiddenError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "user:bob", fe.Request.Subject)
}

func TestServiceAuthorizeShadowMode(t *testing.T) {
	svc := newTestService(t, ModeShadow)
	req := NewRequest("mallory", "hrm", "hrm.kpis", "update")
	require.NoError(t, svc.Authorize(context.Background(), req))

	allowed, err := svc.Check(context.Background(), req)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestServiceMode(t *testing.T) {
	svc := newTestService(t, ModeDisabled)
	require.Equal(t, ModeDisabled, svc.Mode())
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("mallory", "hrm", "hrm.kpis", "update")))
}

func TestNewService_RequiresPaths(t *testing.T) {
	_, err := NewService(Config{PolicyPath: "p.csv", FlagProvider: StaticMode(ModeEnforce)})
	require.Error(t, err)
	_, err = NewService(Config{ModelPath: "m.conf", PolicyPath: "p.csv"})
	require.Error(t, err)
}

func TestFileFlagProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authz_flags.yaml")
	provider := NewFileFlagProvider(path, ModeShadow)
	require.Equal(t, ModeShadow, provider.Mode())

	require.NoError(t, os.WriteFile(path, []byte("mode: enforce\n"), 0o644))
	require.Equal(t, ModeEnforce, provider.Mode())
}

func TestSubjects(t *testing.T) {
	require.Equal(t, "user:anonymous", SubjectForUser(" "))
	require.Equal(t, "user:42", NormalizeSubject("42"))
	require.Equal(t, "role:hr-viewer", NormalizeSubject("role:hr-viewer"))
	require.Equal(t, "role:admin", SubjectForRole("Admin"))
	require.Equal(t, "hrm.kpis", ObjectName("HRM", "Kpis"))
	require.Equal(t, "global.resource", ObjectName("", ""))
	require.Equal(t, "edit", NormalizeAction(" Edit "))
	require.Equal(t, "*", NormalizeAction(""))
}

func TestFileFlagProvider_ObjectOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authz_flags.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: enforce\nobjects:\n  HRM.Kpis: shadow\n"), 0o644))
	provider := NewFileFlagProvider(path, ModeDisabled)
	require.Equal(t, ModeEnforce, provider.Mode())
	require.Equal(t, ModeShadow, provider.ModeFor("hrm.kpis"))
	require.Equal(t, ModeEnforce, provider.ModeFor("hrm.objectives"))

	svc, err := NewService(Config{
		ModelPath:    filepath.Join("testdata", "model.conf"),
		PolicyPath:   filepath.Join("testdata", "policy.csv"),
		FlagProvider: provider,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Authorize(context.Background(), NewRequest("mallory", "hrm", "hrm.kpis", "update")))
	require.ErrorIs(t, svc.Authorize(context.Background(), NewRequest("mallory", "hrm", "hrm.objectives", "list")), ErrForbidden)
}

func TestNewService_ReportsAllMissingFiles(t *testing.T) {
	_, err := NewService(Config{ModelPath: "nope.conf", PolicyPath: "nope.csv", FlagProvider: StaticMode(ModeEnforce)})
	require.ErrorContains(t, err, "model file nope.conf not found")
	require.ErrorContains(t, err, "policy file nope.csv not found")
}
