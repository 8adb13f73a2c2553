package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/modules/hrm/services"
)

const editHelp = `commands:
  list                      show the allocation
  add                       append a blank line
  rm N                      remove line N
  obj N NAME | obj N #ID    set the objective of line N
  dist N VALUE              set the distribution of line N
  target N VALUE            set the target of line N
  deliv N TEXT              set the deliverable of line N
  objectives                list active objectives
  edit                      switch from view to edit
  cancel                    discard edits
  submit                    validate and save
  quit                      leave without saving`

type editOptions struct {
	positionID  int64
	mode        string
	create      bool
	catalogWait time.Duration
}

func newEditCmd(root *rootOptions) *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the KPI allocation of a position interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.positionID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--position must be positive"))
			}
			mode, err := services.ParseMode(opts.mode)
			if err != nil {
				return withCode(exitUsage, err)
			}
			client, err := root.client(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := root.logger(cmd)

			var rec *allocation.Record
			if !opts.create && mode != services.ModeCreate {
				if rec, err = client.GetByPosition(ctx, opts.positionID); err != nil {
					return remoteErr(err)
				}
			}
			catalog := services.NewObjectiveCatalog(client, nil, logger)
			session := services.NewEditorSession(catalog, client, services.WithEditorLogger(logger))
			if err := session.Open(opts.positionID, rec, mode); err != nil {
				return withCode(exitUsage, err)
			}
			return runEditor(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), session, catalog, opts.catalogWait)
		},
	}
	cmd.Flags().Int64Var(&opts.positionID, "position", 0, "Position id (required)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(services.ModeView), "Initial mode: view or edit")
	cmd.Flags().BoolVar(&opts.create, "new", false, "Start from a blank allocation")
	cmd.Flags().DurationVar(&opts.catalogWait, "catalog-wait", 2*time.Second, "How long to wait for objectives before the first render")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

type editor struct {
	session *services.EditorSession
	catalog *services.ObjectiveCatalog
	out     io.Writer
}

// runEditor drives the session from line commands until it closes, the
// user quits or the input ends.
func runEditor(
	ctx context.Context,
	in io.Reader,
	out io.Writer,
	session *services.EditorSession,
	catalog *services.ObjectiveCatalog,
	catalogWait time.Duration,
) error {
	ed := &editor{session: session, catalog: catalog, out: out}

	loaded, err := session.RequestObjectiveCatalogLoad(ctx)
	if err != nil {
		return err
	}
	select {
	case <-loaded:
	case <-time.After(catalogWait):
		fmt.Fprintln(out, "objectives still loading; names will resolve once they arrive")
	case <-ctx.Done():
		return ctx.Err()
	}
	renderState(out, session.State())

	scanner := bufio.NewScanner(in)
	for session.State().Open {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if done := ed.exec(ctx, fields); done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read commands")
	}
	if st := session.State(); st.Open && st.Dirty {
		fmt.Fprintln(out, "unsaved changes discarded")
	}
	session.Close()
	return nil
}

// exec runs one command and reports whether the editor should stop.
func (ed *editor) exec(ctx context.Context, fields []string) bool {
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	var err error
	switch cmd {
	case "help", "?":
		fmt.Fprintln(ed.out, editHelp)
		return false
	case "quit", "exit", "q":
		return true
	case "list", "ls":
		ed.session.Reconcile()
		renderState(ed.out, ed.session.State())
		return false
	case "objectives":
		ed.listObjectives()
		return false
	case "add":
		var added bool
		if added, err = ed.session.AddLine(); err == nil && !added {
			err = fmt.Errorf("total already reaches %s%%", allocation.AddLineCeiling)
		}
	case "rm":
		err = ed.withLine(args, 0, func(i int, _ string) error {
			removed, err := ed.session.RemoveLine(i)
			if err == nil && !removed {
				return fmt.Errorf("line %d cannot be removed", i+1)
			}
			return err
		})
	case "obj":
		err = ed.withLine(args, 1, func(i int, rest string) error {
			return ed.session.SetObjective(i, ed.objectiveRef(rest))
		})
	case "dist":
		err = ed.withLine(args, -1, ed.session.SetDistribution)
	case "target":
		err = ed.withLine(args, -1, ed.session.SetTarget)
	case "deliv":
		err = ed.withLine(args, 1, ed.session.SetDeliverable)
	case "edit":
		err = ed.session.BeginEdit()
	case "cancel":
		var closed bool
		if closed, err = ed.session.CancelEdit(); err == nil && closed {
			fmt.Fprintln(ed.out, "edit cancelled")
			return true
		}
	case "submit":
		return ed.submit(ctx)
	default:
		fmt.Fprintf(ed.out, "unknown command %q, type help\n", cmd)
		return false
	}
	if err != nil {
		fmt.Fprintf(ed.out, "error: %v\n", err)
	}
	renderState(ed.out, ed.session.State())
	return false
}

// withLine parses the 1-based line number in args[0]. minRest is the number
// of words required after it; -1 allows an empty remainder.
func (ed *editor) withLine(args []string, minRest int, fn func(i int, rest string) error) error {
	if len(args) == 0 {
		return fmt.Errorf("line number required")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("invalid line number %q", args[0])
	}
	if len(args)-1 < minRest {
		return fmt.Errorf("missing value for line %d", n)
	}
	return fn(n-1, joinArgs(args[1:]))
}

func (ed *editor) objectiveRef(raw string) allocation.ObjectiveRef {
	if id, ok := strings.CutPrefix(raw, "#"); ok {
		return allocation.ObjectiveByID(objective.ID(id))
	}
	if ed.catalog.IsLoaded() {
		if id, ok := ed.catalog.ResolveByName(raw); ok {
			return allocation.ObjectiveByID(id)
		}
		if hints := ed.catalog.Suggest(raw, 3); len(hints) > 0 {
			fmt.Fprintf(ed.out, "no objective named %q; closest: %s\n", raw, strings.Join(hints, ", "))
		}
	}
	return allocation.ObjectiveByName(raw)
}

func (ed *editor) listObjectives() {
	if !ed.catalog.IsLoaded() {
		fmt.Fprintf(ed.out, "objectives %s\n", ed.catalog.State())
		return
	}
	for _, o := range ed.catalog.Options() {
		fmt.Fprintf(ed.out, "  #%s  %s\n", o.ID, o.Name)
	}
}

func (ed *editor) submit(ctx context.Context) bool {
	err := ed.session.Submit(ctx)
	if err == nil {
		fmt.Fprintln(ed.out, "saved")
		return true
	}
	var verrs allocation.ValidationErrors
	if errors.As(err, &verrs) {
		fmt.Fprintln(ed.out, "cannot submit:")
		renderErrors(ed.out, verrs)
		return false
	}
	fmt.Fprintf(ed.out, "submit failed: %v\n", err)
	return false
}
