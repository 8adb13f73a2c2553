package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/hr-console/modules/hrm/presentation/viewmodels"
	"github.com/iota-uz/hr-console/modules/hrm/services"
)

type validateOptions struct {
	file       string
	objectives string
	json       bool
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var opts validateOptions
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML allocation file without saving it",
		Long: "Validate a YAML allocation file. Objectives are resolved against --objectives " +
			"(a seed file) when given, otherwise against the console API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := readAllocationFile(opts.file)
			if err != nil {
				return err
			}

			var fetcher services.ObjectiveFetcher
			if opts.objectives != "" {
				seed, err := persistence.LoadSeed(opts.objectives)
				if err != nil {
					return withCode(exitUsage, err)
				}
				fetcher = persistence.NewMemoryObjectiveRepository(seed.Objectives...)
			} else {
				client, err := root.client(cmd)
				if err != nil {
					return err
				}
				fetcher = client
			}
			catalog := services.NewObjectiveCatalog(fetcher, nil, root.logger(cmd))

			result, errs, err := validateAllocation(cmd.Context(), f, catalog)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "total %s%%  balanced=%s  targets=%s\n",
					result.TotalDistribution, yesNo(result.DistributionBalanced), yesNo(result.ValidTargets))
				renderErrors(out, errs)
			}
			if len(errs) > 0 {
				return withCode(exitValidation, fmt.Errorf("%s: %d problem(s)", opts.file, len(errs)))
			}
			if !opts.json {
				fmt.Fprintln(out, "ok")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Allocation YAML file (required)")
	cmd.Flags().StringVar(&opts.objectives, "objectives", "", "Seed YAML providing the objective catalog")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func validateAllocation(
	ctx context.Context,
	f *allocationFile,
	catalog *services.ObjectiveCatalog,
) (viewmodels.ValidationResult, allocation.ValidationErrors, error) {
	if err := catalog.Load(ctx); err != nil {
		return viewmodels.ValidationResult{}, nil, remoteErr(err)
	}
	set, errs := buildSet(f.Kpis)
	set.ResolveObjectiveLabels(catalog)
	errs = append(errs, set.Validate()...)
	errs = append(errs, checkObjectives(set, catalog)...)

	return viewmodels.ValidationResult{
		TotalDistribution:    set.TotalDistribution().StringFixed(allocation.PercentScale),
		DistributionBalanced: set.IsDistributionBalanced(),
		ValidTargets:         set.HasValidTargets(),
		Submittable:          len(errs) == 0,
		Errors:               viewmodels.FieldErrorsToViewModel(errs),
	}, errs, nil
}
