// Package healthcheck verifies that the jspdg toolchain works on this
// machine: config, both parsers, the cache directory and the SQLite store.
package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/jspdg/internal/config"
	"github.com/l3aro/jspdg/pkg/pdg"
	"github.com/l3aro/jspdg/pkg/store"
	"github.com/l3aro/jspdg/pkg/syntaxcheck"
)

// Status values.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// probe is a small script touching declarations, functions and control flow.
const probe = "let a = 1;\nfunction f(b) { if (b) { return a + b; } }\nf(a);\n"

// ComponentStatus is the result of checking one component.
type ComponentStatus struct {
	Name   string
	Status string // "ready" or "error"
	Detail string // What was checked, or the failure
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	Components     []ComponentStatus
}

// OK reports whether every component is ready.
func (r *HealthCheckResult) OK() bool {
	for _, c := range r.Components {
		if c.Status != StatusReady {
			return false
		}
	}
	return true
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(ctx context.Context, cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	result.Components = []ComponentStatus{
		checkConfig(cfg),
		checkExtractor(ctx, cfg),
		checkStrictParser(ctx, cfg),
		checkCacheDir(cfg.CacheDir),
		checkStore(),
	}
	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, config.DirName)
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

func ready(name, detail string) ComponentStatus {
	return ComponentStatus{Name: name, Status: StatusReady, Detail: detail}
}

func failed(name string, err error) ComponentStatus {
	return ComponentStatus{Name: name, Status: StatusError, Detail: err.Error()}
}

func checkConfig(cfg *config.Config) ComponentStatus {
	if err := cfg.Validate(); err != nil {
		return failed("config", err)
	}
	return ready("config", fmt.Sprintf("format=%s workers=%d", cfg.OutputFormat, cfg.Workers))
}

// checkExtractor runs the whole pipeline on the probe script.
func checkExtractor(ctx context.Context, cfg *config.Config) ComponentStatus {
	g, err := pdg.Extract(ctx, []byte(probe), cfg.PDGOptions())
	if err != nil {
		return failed("extractor", err)
	}
	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		return failed("extractor", fmt.Errorf("probe produced %d nodes and %d edges", len(g.Nodes), len(g.Edges)))
	}
	return ready("extractor", fmt.Sprintf("probe graph has %d nodes, %d edges", len(g.Nodes), len(g.Edges)))
}

func checkStrictParser(ctx context.Context, cfg *config.Config) ComponentStatus {
	if err := syntaxcheck.Check(ctx, probe, cfg.CleanTimeout); err != nil {
		return failed("strict parser", err)
	}
	return ready("strict parser", "probe script accepted")
}

// checkCacheDir verifies the cache directory can be created and written.
func checkCacheDir(dir string) ComponentStatus {
	if dir == "" {
		return failed("cache", fmt.Errorf("cache_dir is not configured"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return failed("cache", err)
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return failed("cache", fmt.Errorf("%s is not writable: %w", dir, err))
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return ready("cache", dir)
}

// checkStore writes and validates the probe graph in a scratch database.
func checkStore() ComponentStatus {
	dir, err := os.MkdirTemp("", "jspdg-doctor-*")
	if err != nil {
		return failed("store", err)
	}
	defer os.RemoveAll(dir)

	s, err := store.Open(filepath.Join(dir, "probe.db"))
	if err != nil {
		return failed("store", err)
	}
	defer s.Close()

	g, err := pdg.Extract(context.Background(), []byte(probe), pdg.DefaultOptions())
	if err != nil {
		return failed("store", err)
	}
	if err := s.WriteGraph("probe.js", g); err != nil {
		return failed("store", err)
	}
	report, err := s.Validate()
	if err != nil {
		return failed("store", err)
	}
	if !report.OK() {
		return failed("store", fmt.Errorf("%d orphan edges", report.OrphanEdges))
	}
	return ready("store", "sqlite write and validate")
}
