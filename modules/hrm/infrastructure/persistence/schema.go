package persistence

import (
	"context"
	_ "embed"

	"github.com/go-faster/errors"

	"github.com/iota-uz/hr-console/pkg/composables"
)

//go:embed schema/hrm-schema.sql
var schemaSQL string

// ApplySchema creates the HRM tables when they are missing.
func ApplySchema(ctx context.Context) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return errors.Wrap(err, "apply hrm schema")
	}
	return nil
}
