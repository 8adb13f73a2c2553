package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/hr-console/modules/hrm/services"
)

type showOptions struct {
	positionID int64
	format     string
}

func newShowCmd(root *rootOptions) *cobra.Command {
	var opts showOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the KPI allocation of a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.positionID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--position must be positive"))
			}
			client, err := root.client(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rec, err := client.GetByPosition(ctx, opts.positionID)
			if err != nil {
				return remoteErr(err)
			}

			out := cmd.OutOrStdout()
			switch opts.format {
			case "json":
				return writeJSON(out, viewmodels.RecordToViewModel(rec))
			case "yaml":
				// Same shape validate --file reads.
				data, err := yaml.Marshal(&allocationFile{
					PositionID: rec.PositionID,
					Kpis:       persistence.FileLinesFromEntries(rec.Kpis),
				})
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "table":
				catalog := services.NewObjectiveCatalog(client, nil, root.logger(cmd))
				if err := catalog.Load(ctx); err != nil {
					// Names are cosmetic here; fall back to ids.
					root.logger(cmd).WithError(err).Warn("objectives unavailable")
				}
				fmt.Fprintf(out, "position %d\n", rec.PositionID)
				renderSet(out, allocation.FromExternalRecord(rec.Kpis, catalog))
				return nil
			default:
				return withCode(exitUsage, fmt.Errorf("unknown --format %q (table|json|yaml)", opts.format))
			}
		},
	}
	cmd.Flags().Int64Var(&opts.positionID, "position", 0, "Position id (required)")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Output format: table, json or yaml")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}
