package authz

import (
	"context"
	"sync"

	"github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

// Authorizer is the subset of Service the request pipeline depends on.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) error
}

// Service provides helpers for enforcing authorization decisions.
type Service struct {
	cfg          Config
	enforcer     *casbin.Enforcer
	logger       *logrus.Entry
	flagProvider FlagProvider
	mu           sync.RWMutex
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	base := cfg.Logger
	if base == nil {
		base = logrus.StandardLogger()
	}
	logger := base.WithField("component", "authz")

	enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	if err != nil {
		return nil, errors.Wrap(err, "authz: init enforcer")
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, errors.Wrap(err, "authz: load policy")
	}

	provider := cfg.FlagProvider
	if provider == nil {
		provider = NewFileFlagProvider(cfg.FlagPath, cfg.FlagMode)
	}

	return &Service{
		cfg:          cfg,
		enforcer:     enf,
		logger:       logger,
		flagProvider: provider,
	}, nil
}

func (s *Service) Mode() Mode {
	return s.flagProvider.Mode()
}

// Authorize returns an error if the request is denied. In shadow mode a
// denial is only logged. The mode may be overridden per object.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	mode := modeFor(s.flagProvider, req.Object)
	if mode == ModeDisabled {
		return nil
	}

	allowed, err := s.Check(ctx, req)
	if err != nil {
		return err
	}
	recordDecision(req, mode, allowed)
	if allowed {
		return nil
	}

	entry := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"subject": req.Subject,
		"domain":  req.Domain,
		"object":  req.Object,
		"action":  req.Action,
		"mode":    mode,
	})
	if mode != ModeEnforce {
		entry.Warn("authz shadow deny")
		return nil
	}
	entry.Warn("authz denied request")
	return &ForbiddenError{Request: req}
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(ctx context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.enforcer.Enforce(req.Subject, req.Domain, req.Object, req.Action)
	if err != nil {
		return false, errors.Wrap(err, "authz: enforce")
	}
	return res, nil
}

// ReloadPolicy reloads policy data from disk.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return errors.Wrap(err, "authz: reload policy")
	}
	s.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

var (
	defaultServiceOnce sync.Once
	defaultService     *Service
	defaultServiceErr  error
)

// Use returns a singleton Service configured via environment variables.
func Use() (*Service, error) {
	defaultServiceOnce.Do(func() {
		defaultService, defaultServiceErr = NewService(DefaultConfig())
	})
	return defaultService, defaultServiceErr
}
