package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/eventbus"
)

// ObjectiveFetcher lists the objectives currently available for selection.
type ObjectiveFetcher interface {
	ListActive(ctx context.Context) ([]objective.Objective, error)
}

type CatalogState int

const (
	CatalogNotLoaded CatalogState = iota
	CatalogLoading
	CatalogLoaded
)

func (s CatalogState) String() string {
	switch s {
	case CatalogLoading:
		return "loading"
	case CatalogLoaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// ObjectiveCatalog is a lazily loaded, read-only objective lookup table.
// A failed fetch leaves it not loaded so that a later RequestLoad retries.
type ObjectiveCatalog struct {
	fetcher   ObjectiveFetcher
	publisher eventbus.EventBus
	logger    *logrus.Entry

	mu         sync.RWMutex
	state      CatalogState
	generation uint64
	done       chan struct{}
	err        error
	byID       map[objective.ID]objective.Objective
	byName     map[string]objective.ID
	options    []objective.Objective
}

// NewObjectiveCatalog builds an empty catalog. publisher may be nil.
func NewObjectiveCatalog(fetcher ObjectiveFetcher, publisher eventbus.EventBus, logger *logrus.Entry) *ObjectiveCatalog {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ObjectiveCatalog{
		fetcher:   fetcher,
		publisher: publisher,
		logger:    logger.WithField("component", "objective_catalog"),
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// RequestLoad starts fetching active objectives unless a fetch is already in
// flight or has succeeded. The returned channel closes when the current
// attempt settles. The fetch outlives ctx cancellation.
func (c *ObjectiveCatalog) RequestLoad(ctx context.Context) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case CatalogLoaded:
		return closedChan()
	case CatalogLoading:
		return c.done
	}

	c.state = CatalogLoading
	c.done = make(chan struct{})
	go c.fetch(context.WithoutCancel(ctx), c.generation, c.done)
	return c.done
}

// Load is the blocking form of RequestLoad.
func (c *ObjectiveCatalog) Load(ctx context.Context) error {
	select {
	case <-c.RequestLoad(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == CatalogLoaded {
		return nil
	}
	return c.err
}

func (c *ObjectiveCatalog) fetch(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	objs, err := c.fetcher.ListActive(ctx)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding objective fetch for a reset catalog")
		return
	}
	if err != nil {
		c.state = CatalogNotLoaded
		c.err = err
		c.mu.Unlock()

		catalogLoads.WithLabelValues("error").Inc()
		c.logger.WithError(err).Warn("failed to load objectives")
		c.publish(&ObjectiveCatalogFailedEvent{Err: err})
		return
	}
	c.index(objs)
	c.state = CatalogLoaded
	c.err = nil
	count := len(c.options)
	c.mu.Unlock()

	catalogLoads.WithLabelValues("ok").Inc()
	c.logger.WithField("count", count).Debug("objectives loaded")
	c.publish(&ObjectiveCatalogLoadedEvent{Count: count})
}

// index must be called with c.mu held.
func (c *ObjectiveCatalog) index(objs []objective.Objective) {
	c.byID = make(map[objective.ID]objective.Objective, len(objs))
	c.byName = make(map[string]objective.ID, len(objs))
	c.options = make([]objective.Objective, 0, len(objs))
	for _, o := range objs {
		if o.ID.IsZero() {
			continue
		}
		if _, dup := c.byID[o.ID]; dup {
			continue
		}
		c.byID[o.ID] = o
		if key := nameKey(o.Name); key != "" {
			if _, taken := c.byName[key]; !taken {
				c.byName[key] = o.ID
			}
		}
		c.options = append(c.options, o)
	}
	sort.SliceStable(c.options, func(i, j int) bool {
		return strings.ToLower(c.options[i].Name) < strings.ToLower(c.options[j].Name)
	})
}

func (c *ObjectiveCatalog) publish(event interface{}) {
	if c.publisher != nil {
		c.publisher.Publish(event)
	}
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ResolveByID returns false before a successful load and for unknown ids.
func (c *ObjectiveCatalog) ResolveByID(id objective.ID) (objective.Objective, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != CatalogLoaded {
		return objective.Objective{}, false
	}
	o, ok := c.byID[objective.ID(strings.TrimSpace(id.String()))]
	return o, ok
}

// ResolveByName matches display names case-insensitively, ignoring
// surrounding and repeated whitespace.
func (c *ObjectiveCatalog) ResolveByName(name string) (objective.ID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != CatalogLoaded {
		return "", false
	}
	id, ok := c.byName[nameKey(name)]
	return id, ok
}

// Options returns the active objectives sorted by name; empty until loaded.
func (c *ObjectiveCatalog) Options() []objective.Objective {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]objective.Objective, len(c.options))
	copy(out, c.options)
	return out
}

// Suggest returns up to limit objective names closest to name.
func (c *ObjectiveCatalog) Suggest(name string, limit int) []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.options))
	for _, o := range c.options {
		names = append(names, o.Name)
	}
	c.mu.RUnlock()

	name = strings.TrimSpace(name)
	if name == "" || len(names) == 0 || limit <= 0 {
		return nil
	}
	ranks := fuzzy.RankFindNormalizedFold(name, names)
	sort.Sort(ranks)
	out := make([]string, 0, limit)
	for _, r := range ranks {
		if len(out) == limit {
			break
		}
		out = append(out, r.Target)
	}
	return out
}

func (c *ObjectiveCatalog) State() CatalogState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *ObjectiveCatalog) IsLoaded() bool {
	return c.State() == CatalogLoaded
}

// Err returns the error of the last failed fetch.
func (c *ObjectiveCatalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Reset drops loaded data. A fetch still in flight is discarded on completion.
func (c *ObjectiveCatalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = CatalogNotLoaded
	c.err = nil
	c.byID = nil
	c.byName = nil
	c.options = nil
}
