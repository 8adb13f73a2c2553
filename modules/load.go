package modules

import (
	"github.com/iota-uz/hr-console/modules/hrm"
	"github.com/iota-uz/hr-console/pkg/application"
)

// BuiltInModules builds the modules served by cmd/server. hrm reads its
// storage options from the environment.
func BuiltInModules() []application.Module {
	return []application.Module{
		hrm.NewModule(nil),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
