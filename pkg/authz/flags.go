package authz

import (
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode is the enforcement level applied to a decision.
type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeShadow   Mode = "shadow"
	ModeEnforce  Mode = "enforce"
)

// FlagProvider supplies the global enforcement mode.
type FlagProvider interface {
	Mode() Mode
}

// ObjectFlagProvider lets single objects, e.g. hrm.kpis, run in a different
// mode than the rest while a policy is rolled out.
type ObjectFlagProvider interface {
	FlagProvider
	ModeFor(object string) Mode
}

type staticFlagProvider Mode

func (s staticFlagProvider) Mode() Mode {
	return Mode(s)
}

func StaticMode(mode Mode) FlagProvider {
	return staticFlagProvider(sanitizeMode(mode))
}

type flagFile struct {
	Mode    string            `yaml:"mode"`
	Objects map[string]string `yaml:"objects"`
}

type flagSnapshot struct {
	mode    Mode
	objects map[string]Mode
}

// FileFlagProvider reads flags from YAML:
//
//	mode: enforce
//	objects:
//	  hrm.kpis: shadow
//
// The file is re-read when its modification time changes. A missing or
// unreadable file keeps the last good snapshot, or the fallback mode.
type FileFlagProvider struct {
	path     string
	fallback Mode

	mu      sync.Mutex
	current *flagSnapshot
	modTime time.Time
}

func NewFileFlagProvider(path string, fallback Mode) *FileFlagProvider {
	return &FileFlagProvider{path: path, fallback: sanitizeMode(fallback)}
}

func (p *FileFlagProvider) Mode() Mode {
	return p.snapshot().mode
}

func (p *FileFlagProvider) ModeFor(object string) Mode {
	snap := p.snapshot()
	if m, ok := snap.objects[NormalizeObject(object)]; ok {
		return m
	}
	return snap.mode
}

func (p *FileFlagProvider) snapshot() *flagSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err == nil && p.current != nil && info.ModTime().Equal(p.modTime) {
		return p.current
	}
	if err == nil {
		if snap, ok := readFlagFile(p.path); ok {
			p.current = snap
			p.modTime = info.ModTime()
			return snap
		}
	}
	if p.current == nil {
		return &flagSnapshot{mode: p.fallback}
	}
	return p.current
}

func readFlagFile(path string) (*flagSnapshot, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var f flagFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, false
	}
	snap := &flagSnapshot{mode: sanitizeMode(Mode(f.Mode)), objects: make(map[string]Mode, len(f.Objects))}
	for obj, mode := range f.Objects {
		snap.objects[NormalizeObject(obj)] = sanitizeMode(Mode(mode))
	}
	return snap, true
}

// modeFor resolves per-object overrides when the provider supports them.
func modeFor(p FlagProvider, object string) Mode {
	if op, ok := p.(ObjectFlagProvider); ok {
		return op.ModeFor(object)
	}
	return p.Mode()
}

func sanitizeMode(mode Mode) Mode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(ModeDisabled):
		return ModeDisabled
	case string(ModeEnforce):
		return ModeEnforce
	default:
		return ModeShadow
	}
}
