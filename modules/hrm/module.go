package hrm

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/controllers"
	"github.com/iota-uz/hr-console/modules/hrm/services"
	"github.com/iota-uz/hr-console/pkg/application"
	"github.com/iota-uz/hr-console/pkg/composables"
	"github.com/iota-uz/hr-console/pkg/configuration"
)

var ErrNoPool = errors.New("hrm: postgres storage selected but the application has no pool")

type ModuleOptions struct {
	// Storage is one of configuration.StoragePostgres, StorageSQLite or StorageMemory.
	Storage    string
	SQLitePath string
	// SeedPath optionally points at a YAML seed of objectives and KPI sets.
	SeedPath string
}

// NewModule reads its options from the environment when opts is nil.
func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		conf := configuration.Use()
		opts = &ModuleOptions{
			Storage:    conf.HRM.KpiStorage,
			SQLitePath: conf.HRM.SQLitePath,
			SeedPath:   conf.HRM.ObjectivesSeed,
		}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	var (
		kpiRepo allocation.Repository
		objRepo interface {
			objective.Repository
			persistence.ObjectiveWriter
		}
		ctx = context.Background()
	)
	switch m.options.Storage {
	case configuration.StorageMemory:
		kpiRepo = persistence.NewMemoryKpiRepository()
		objRepo = persistence.NewMemoryObjectiveRepository()
	case configuration.StorageSQLite:
		store, err := persistence.OpenSQLite(m.options.SQLitePath)
		if err != nil {
			return err
		}
		kpiRepo, objRepo = store, store
	case configuration.StoragePostgres, "":
		if app.DB() == nil {
			return ErrNoPool
		}
		ctx = composables.WithPool(ctx, app.DB())
		if err := persistence.ApplySchema(ctx); err != nil {
			return err
		}
		kpiRepo = persistence.NewKpiRepository()
		objRepo = persistence.NewObjectiveRepository()
	default:
		return errors.Errorf("hrm: unknown storage %q", m.options.Storage)
	}

	if m.options.SeedPath != "" {
		seed, err := persistence.LoadSeed(m.options.SeedPath)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, objRepo, kpiRepo); err != nil {
			return err
		}
		app.Logger().WithFields(logrus.Fields{
			"objectives": len(seed.Objectives),
			"positions":  len(seed.Positions),
		}).Info("hrm seed applied")
	}

	app.RegisterServices(
		services.NewKpiService(kpiRepo, objRepo, app.EventPublisher()),
		services.NewObjectiveService(objRepo),
	)
	app.RegisterControllers(
		controllers.NewKpiAPIController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "hrm"
}
