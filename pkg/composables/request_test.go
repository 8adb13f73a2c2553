package composables

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/pkg/authz"
)

type allowAll struct{}

func (allowAll) Authorize(ctx context.Context, req authz.Request) error { return nil }

func TestUseLogger_FallsBackToStandardLogger(t *testing.T) {
	require.NotNil(t, UseLogger(context.Background()))

	entry := logrus.NewEntry(logrus.New()).WithField("request-id", "r1")
	ctx := WithLogger(context.Background(), entry)
	require.Equal(t, "r1", UseLogger(ctx).Data["request-id"])
}

func TestAuthzSubject(t *testing.T) {
	require.Equal(t, "user:anonymous", UseAuthzSubject(context.Background()))
	ctx := WithAuthzSubject(context.Background(), "alice")
	require.Equal(t, "user:alice", UseAuthzSubject(ctx))
}

func TestUseAuthorizer(t *testing.T) {
	_, ok := UseAuthorizer(context.Background())
	require.False(t, ok)

	ctx := WithAuthorizer(context.Background(), allowAll{})
	a, ok := UseAuthorizer(ctx)
	require.True(t, ok)
	require.NoError(t, a.Authorize(ctx, authz.Request{}))
}

func TestUsePool_Missing(t *testing.T) {
	_, err := UsePool(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
	_, err = UseTx(context.Background())
	require.ErrorIs(t, err, ErrNoPool)
}
