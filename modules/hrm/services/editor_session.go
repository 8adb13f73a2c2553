package services

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

type Mode string

const (
	ModeClosed Mode = ""
	ModeCreate Mode = "create"
	ModeView   Mode = "view"
	ModeEdit   Mode = "edit"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCreate, ModeView, ModeEdit:
		return m, nil
	default:
		return ModeClosed, errors.Wrapf(ErrInvalidMode, "%q", s)
	}
}

// KpiSaver persists the full replacement KPI set of a position.
type KpiSaver interface {
	Save(ctx context.Context, positionID int64, lines []allocation.PayloadLine) error
}

// ReconcilePolicy decides what happens to the live set once the objective
// catalog becomes available.
type ReconcilePolicy int

const (
	// ReconcileObjectiveNames only refreshes objective labels; edits survive.
	ReconcileObjectiveNames ReconcilePolicy = iota
	// ReconcileReplace rebuilds the live and baseline sets from the source
	// record the first time the catalog is seen loaded, discarding edits.
	ReconcileReplace
)

type EditorOption func(*EditorSession)

func WithReconcilePolicy(p ReconcilePolicy) EditorOption {
	return func(s *EditorSession) { s.policy = p }
}

func WithEditorLogger(l *logrus.Entry) EditorOption {
	return func(s *EditorSession) { s.logger = l }
}

// EditorSession owns the lifecycle of one KPI allocation dialog: mode,
// source record, the live set and the baseline restored on cancel.
// All methods are safe for concurrent use; results of asynchronous work that
// completes after the session was closed or reopened are ignored.
type EditorSession struct {
	catalog *ObjectiveCatalog
	saver   KpiSaver
	policy  ReconcilePolicy
	logger  *logrus.Entry

	mu               sync.Mutex
	generation       uint64
	open             bool
	mode             Mode
	originalMode     Mode
	positionID       int64
	source           *allocation.Record
	current          *allocation.Set
	baseline         *allocation.Set
	catalogRequested bool
	catalogApplied   bool
	submitting       bool
	lastErr          error
}

func NewEditorSession(catalog *ObjectiveCatalog, saver KpiSaver, opts ...EditorOption) *EditorSession {
	s := &EditorSession{
		catalog: catalog,
		saver:   saver,
		logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "kpi_editor")
	return s
}

// Open (re)initializes the session. Without a source record the session is
// in create mode with one blank line; otherwise mode must be view or edit.
func (s *EditorSession) Open(positionID int64, source *allocation.Record, mode Mode) error {
	if source != nil && mode != ModeView && mode != ModeEdit {
		return errors.Wrapf(ErrInvalidMode, "%q with a source record", mode)
	}
	if source == nil {
		mode = ModeCreate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.open = true
	s.mode = mode
	s.originalMode = mode
	s.positionID = positionID
	s.source = source
	s.catalogRequested = false
	s.submitting = false
	s.lastErr = nil
	s.rebuildLocked()
	s.catalogApplied = s.catalog != nil && s.catalog.IsLoaded()
	return nil
}

// rebuildLocked repopulates the live and baseline sets from the source record.
func (s *EditorSession) rebuildLocked() {
	if s.source == nil {
		s.current = allocation.New()
	} else {
		s.current = allocation.FromExternalRecord(s.source.Kpis, s.resolver())
	}
	s.baseline = s.current.Clone()
}

func (s *EditorSession) resolver() allocation.Resolver {
	if s.catalog == nil {
		return nil
	}
	return s.catalog
}

// Close discards all session state. Pending completions are ignored.
func (s *EditorSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *EditorSession) closeLocked() {
	s.generation++
	s.open = false
	s.mode = ModeClosed
	s.originalMode = ModeClosed
	s.positionID = 0
	s.source = nil
	s.current = nil
	s.baseline = nil
	s.catalogRequested = false
	s.catalogApplied = false
	s.submitting = false
}

func (s *EditorSession) BeginEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrSessionClosed
	}
	if s.mode != ModeView {
		return errors.Wrapf(ErrInvalidTransition, "begin edit from %q", s.mode)
	}
	s.mode = ModeEdit
	return nil
}

// CancelEdit discards unsaved edits. A session opened in view mode returns
// to view with the set rebuilt from the source record; any other session is
// closed, which is reported through closed.
func (s *EditorSession) CancelEdit() (closed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, ErrSessionClosed
	}
	if s.mode != ModeEdit && s.mode != ModeCreate {
		return false, errors.Wrapf(ErrInvalidTransition, "cancel edit from %q", s.mode)
	}
	if s.submitting {
		return false, ErrSubmitInProgress
	}
	if s.originalMode != ModeView {
		s.closeLocked()
		return true, nil
	}
	s.rebuildLocked()
	s.mode = ModeView
	s.lastErr = nil
	return false, nil
}

// RequestObjectiveCatalogLoad triggers the catalog fetch at most once per
// open session. The returned channel closes after the session reconciled
// against the settled catalog, or ignored it because it was closed meanwhile.
func (s *EditorSession) RequestObjectiveCatalogLoad(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.catalog == nil {
		s.mu.Unlock()
		return closedChan(), nil
	}
	s.catalogRequested = true
	generation := s.generation
	s.mu.Unlock()

	settled := s.catalog.RequestLoad(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-settled
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.open || generation != s.generation {
			return
		}
		s.reconcileLocked()
	}()
	return done, nil
}

// Reconcile brings the session in line with the catalog. It is idempotent
// and a no-op until the catalog is loaded.
func (s *EditorSession) Reconcile() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return
	}
	s.reconcileLocked()
}

func (s *EditorSession) reconcileLocked() {
	if s.catalog == nil || !s.catalog.IsLoaded() {
		return
	}
	if s.policy == ReconcileReplace && s.source != nil && !s.catalogApplied {
		if !s.current.Equal(s.baseline) {
			s.logger.WithField("position_id", s.positionID).Warn("catalog loaded during edit; unsaved changes replaced")
		}
		s.rebuildLocked()
	} else {
		s.current.ResolveObjectiveLabels(s.catalog)
		s.baseline.ResolveObjectiveLabels(s.catalog)
	}
	s.catalogApplied = true
}

func (s *EditorSession) mutate(fn func(set *allocation.Set) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrSessionClosed
	}
	if s.mode != ModeCreate && s.mode != ModeEdit {
		return ErrReadOnly
	}
	// The payload of an outstanding save is already captured.
	if s.submitting {
		return ErrSubmitInProgress
	}
	return fn(s.current)
}

func (s *EditorSession) AddLine() (bool, error) {
	var added bool
	err := s.mutate(func(set *allocation.Set) error {
		added = set.AddLine()
		return nil
	})
	return added, err
}

func (s *EditorSession) RemoveLine(i int) (bool, error) {
	var removed bool
	err := s.mutate(func(set *allocation.Set) error {
		removed = set.RemoveLine(i)
		return nil
	})
	return removed, err
}

func (s *EditorSession) SetObjective(i int, ref allocation.ObjectiveRef) error {
	return s.mutate(func(set *allocation.Set) error {
		if err := set.SetObjective(i, ref); err != nil {
			return err
		}
		if s.catalog != nil && s.catalog.IsLoaded() {
			set.ResolveObjectiveLabels(s.catalog)
		}
		return nil
	})
}

func (s *EditorSession) SetDistribution(i int, raw string) error {
	return s.mutate(func(set *allocation.Set) error { return set.SetDistribution(i, raw) })
}

func (s *EditorSession) SetTarget(i int, raw string) error {
	return s.mutate(func(set *allocation.Set) error { return set.SetTarget(i, raw) })
}

func (s *EditorSession) SetDeliverable(i int, text string) error {
	return s.mutate(func(set *allocation.Set) error { return set.SetDeliverable(i, text) })
}

// Submit validates the live set and hands its payload to the saver. An
// invalid set is rejected locally with allocation.ValidationErrors. On success
// the session closes; on a save failure it stays open and unchanged.
func (s *EditorSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.mode != ModeCreate && s.mode != ModeEdit {
		s.mu.Unlock()
		return ErrReadOnly
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitInProgress
	}
	if s.saver == nil {
		s.mu.Unlock()
		return ErrNoSaver
	}
	if errs := s.current.Validate(); len(errs) > 0 {
		s.lastErr = errs
		s.mu.Unlock()
		return errs
	}
	payload := s.current.ToPayload(s.resolver())
	positionID := s.positionID
	generation := s.generation
	s.submitting = true
	s.mu.Unlock()

	err := s.saver.Save(ctx, positionID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.logger.WithField("position_id", positionID).Debug("ignoring save completion for a closed session")
		return err
	}
	s.submitting = false
	if err != nil {
		s.lastErr = err
		s.logger.WithError(err).WithField("position_id", positionID).Warn("kpi save failed")
		return errors.Wrap(err, "save kpis")
	}
	s.closeLocked()
	return nil
}

// LineState is the render model of one line.
type LineState struct {
	ObjectiveLabel    string
	ObjectiveID       objective.ID
	ObjectiveResolved bool
	Distribution      string
	Deliverable       string
	Target            string
	TargetEditable    bool
	Errors            allocation.ValidationErrors
}

// SessionState is a snapshot for host rendering.
type SessionState struct {
	Open                 bool
	Mode                 Mode
	OriginalMode         Mode
	PositionID           int64
	Lines                []LineState
	TotalDistribution    decimal.Decimal
	DistributionBalanced bool
	ValidTargets         bool
	CanAddLine           bool
	CanRemoveLine        bool
	Submittable          bool
	Submitting           bool
	Dirty                bool
	CatalogRequested     bool
	CatalogState         CatalogState
	CatalogErr           error
	Errors               allocation.ValidationErrors
	LastErr              error
}

func (s *EditorSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SessionState{
		Open:             s.open,
		Mode:             s.mode,
		OriginalMode:     s.originalMode,
		PositionID:       s.positionID,
		Submitting:       s.submitting,
		CatalogRequested: s.catalogRequested,
		LastErr:          s.lastErr,
	}
	if s.catalog != nil {
		st.CatalogState = s.catalog.State()
		st.CatalogErr = s.catalog.Err()
	}
	if !s.open {
		return st
	}

	errs := s.current.Validate()
	for i, l := range s.current.Lines() {
		ls := LineState{
			ObjectiveLabel:    l.Objective().Label(),
			ObjectiveResolved: l.Objective().IsResolved(),
			Distribution:      l.Distribution().String(),
			Deliverable:       l.Deliverable(),
			Target:            l.Target().String(),
			TargetEditable:    l.IsTargetEditable(),
			Errors:            errs.ForLine(i),
		}
		if id, ok := l.Objective().ID(); ok {
			ls.ObjectiveID = id
		}
		st.Lines = append(st.Lines, ls)
	}
	st.TotalDistribution = s.current.TotalDistribution()
	st.DistributionBalanced = s.current.IsDistributionBalanced()
	st.ValidTargets = s.current.HasValidTargets()
	st.CanAddLine = s.current.CanAddLine()
	st.CanRemoveLine = s.current.CanRemoveLine()
	st.Submittable = len(errs) == 0
	st.Dirty = !s.current.Equal(s.baseline)
	st.Errors = errs
	return st
}

// CurrentSet returns a copy of the live set, nil when closed.
func (s *EditorSession) CurrentSet() *allocation.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	return s.current.Clone()
}

// BaselineSet returns a copy of the set restored on cancel, nil when closed.
func (s *EditorSession) BaselineSet() *allocation.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	return s.baseline.Clone()
}
