package main

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

const exportSheet = "KPIs"

var exportHeader = []any{"#", "Objective", "Code", "Objective ID", "Distribution %", "Target %", "Deliverable"}

type exportOptions struct {
	positionID int64
	out        string
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the KPI allocation of a position to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.positionID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--position must be positive"))
			}
			if !strings.HasSuffix(strings.ToLower(opts.out), ".xlsx") {
				return withCode(exitUsage, fmt.Errorf("--out must name an .xlsx file"))
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
			objs, err := client.ListActive(ctx)
			if err != nil {
				return remoteErr(err)
			}
			if err := writeWorkbook(opts.out, rec, objs); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				Status     string `json:"status"`
				PositionID int64  `json:"position_id"`
				Lines      int    `json:"lines"`
				File       string `json:"file"`
			}{"exported", rec.PositionID, len(rec.Kpis), opts.out})
		},
	}
	cmd.Flags().Int64Var(&opts.positionID, "position", 0, "Position id (required)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output .xlsx path (required)")
	_ = cmd.MarkFlagRequired("position")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// writeWorkbook lays the record out one line per row followed by a total
// row. Percentages are written as numbers so the sheet can recompute them.
func writeWorkbook(path string, rec *allocation.Record, objs []objective.Objective) error {
	byID := make(map[objective.ID]objective.Objective, len(objs))
	for _, o := range objs {
		byID[o.ID] = o
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	for i, e := range rec.Kpis {
		o, known := byID[e.ObjectiveID]
		name := o.Name
		if !known {
			name = "(inactive or unknown)"
		}
		row := []any{i + 1, name, o.Code, e.ObjectiveID.String(), percentCell(e.DistributionPercentage.Valid, e.DistributionPercentage.Decimal.InexactFloat64()),
			percentCell(e.TargetPercentage.Valid, e.TargetPercentage.Decimal.InexactFloat64()), e.Deliverable}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write line %d", i+1)
		}
	}

	totalRow := len(rec.Kpis) + 2
	if err := f.SetCellValue(exportSheet, fmt.Sprintf("D%d", totalRow), "Total"); err != nil {
		return err
	}
	formula := "0"
	if len(rec.Kpis) > 0 {
		formula = fmt.Sprintf("SUM(E2:E%d)", totalRow-1)
	}
	if err := f.SetCellFormula(exportSheet, fmt.Sprintf("E%d", totalRow), formula); err != nil {
		return errors.Wrap(err, "write total")
	}
	if err := f.SetCellValue(exportSheet, "I1", fmt.Sprintf("position %d", rec.PositionID)); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "G", "G", 40); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return withCode(exitUsage, errors.Wrap(err, "save workbook"))
	}
	return nil
}

func percentCell(valid bool, v float64) any {
	if !valid {
		return ""
	}
	return v
}
