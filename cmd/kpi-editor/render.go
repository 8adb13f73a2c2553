package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/services"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// renderSet prints the lines of a set as a table, labelling objectives
// through the catalog when possible.
func renderSet(w io.Writer, set *allocation.Set) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tOBJECTIVE\tDISTRIBUTION\tTARGET\tDELIVERABLE")
	for i, l := range set.Lines() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			i+1, dash(l.Objective().Label()), dash(l.Distribution().String()),
			dash(l.Target().String()), dash(l.Deliverable()))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "total %s%%  balanced=%s  targets=%s\n",
		set.TotalDistribution().StringFixed(allocation.PercentScale),
		yesNo(set.IsDistributionBalanced()), yesNo(set.HasValidTargets()))
}

func renderErrors(w io.Writer, errs allocation.ValidationErrors) {
	for _, e := range errs {
		fmt.Fprintf(w, "  ! %s [%s]\n", e.Error(), e.Code)
	}
}

func renderState(w io.Writer, st services.SessionState) {
	if !st.Open {
		fmt.Fprintln(w, "session closed")
		return
	}
	fmt.Fprintf(w, "position %d  mode=%s  catalog=%s", st.PositionID, st.Mode, st.CatalogState)
	if st.Dirty {
		fmt.Fprint(w, "  (modified)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tOBJECTIVE\tDISTRIBUTION\tTARGET\tDELIVERABLE")
	for i, l := range st.Lines {
		label := dash(l.ObjectiveLabel)
		if l.ObjectiveID != "" && !l.ObjectiveResolved {
			label = "#" + label
		}
		target := dash(l.Target)
		if !l.TargetEditable {
			target = "(locked)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, label, dash(l.Distribution), target, dash(l.Deliverable))
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "total %s%%  balanced=%s  targets=%s  submittable=%s\n",
		st.TotalDistribution.StringFixed(allocation.PercentScale),
		yesNo(st.DistributionBalanced), yesNo(st.ValidTargets), yesNo(st.Submittable))
	if st.Mode != services.ModeView {
		renderErrors(w, st.Errors)
	}
	if st.CatalogErr != nil && st.CatalogState != services.CatalogLoaded {
		fmt.Fprintf(w, "  objectives unavailable: %v\n", st.CatalogErr)
	}
	if st.LastErr != nil {
		fmt.Fprintf(w, "  last submit failed: %v\n", st.LastErr)
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
