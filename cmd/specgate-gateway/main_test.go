package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidahmann/specgate/internal/config"
)

func noEnv(string) string { return "" }

func envMap(values map[string]string) envFn {
	return func(key string) string { return values[key] }
}

func TestNewServer(t *testing.T) {
	cfg := config.Default()
	cfg.ListenAddr = "127.0.0.1:9999"
	gw, err := newServer(cfg, noEnv)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer gw.stop()

	if gw.server.Addr != cfg.ListenAddr {
		t.Fatalf("expected addr %s, got %s", cfg.ListenAddr, gw.server.Addr)
	}
	if gw.rulesHash == "" {
		t.Fatalf("expected rules hash")
	}

	res := httptest.NewRecorder()
	gw.server.Handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", res.Code)
	}
}

func TestNewServerWithoutMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	gw, err := newServer(cfg, noEnv)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer gw.stop()

	res := httptest.NewRecorder()
	gw.server.Handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected no metrics endpoint, got %d", res.Code)
	}
}

func TestNewServerBadRules(t *testing.T) {
	cfg := config.Default()
	cfg.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newServer(cfg, noEnv); err == nil {
		t.Fatalf("expected error for missing rules file")
	}
}

func TestNewServerSchedulesRefresh(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.RefreshSchedule = "*/5 * * * *"
	gw, err := newServer(cfg, noEnv)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	gw.stop()
}

func TestNewServerWithSQLiteLedger(t *testing.T) {
	cfg := config.Default()
	cfg.Ledger = config.LedgerConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "specgate.db")}
	gw, err := newServer(cfg, noEnv)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer gw.stop()

	res := httptest.NewRecorder()
	gw.server.Handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected report list, got %d %s", res.Code, res.Body.String())
	}
}

func TestOpenLedger(t *testing.T) {
	store, closeFn, err := openLedger(config.LedgerConfig{})
	if err != nil || store == nil {
		t.Fatalf("expected memory ledger, got %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, _, err := openLedger(config.LedgerConfig{Driver: "mysql"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, _, err := openLedger(config.LedgerConfig{Driver: "postgres", DSN: "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1"}); err == nil {
		t.Fatalf("expected unreachable postgres error")
	}
}

func TestScheduleRefreshRejectsBadSpec(t *testing.T) {
	if _, err := scheduleRefresh("not a schedule", nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunDefaults(t *testing.T) {
	factory := func(cfg config.Config, _ envFn) (*gateway, error) {
		if cfg.ListenAddr != ":8080" {
			t.Fatalf("expected default addr, got %s", cfg.ListenAddr)
		}
		if cfg.RulesPath != "" || cfg.GitHub.Enabled {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
		return &gateway{server: &http.Server{Addr: cfg.ListenAddr}}, nil
	}
	listen := func(_ *http.Server) error { return http.ErrServerClosed }

	if err := run(nil, noEnv, listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunError(t *testing.T) {
	listenErr := errors.New("listen failed")
	listen := func(_ *http.Server) error { return listenErr }

	stopped := false
	factory := func(cfg config.Config, _ envFn) (*gateway, error) {
		return &gateway{server: &http.Server{Addr: cfg.ListenAddr}, stop: func() { stopped = true }}, nil
	}

	getenv := envMap(map[string]string{"SPECGATE_LISTEN_ADDR": "127.0.0.1:1234"})
	if err := run(nil, getenv, listen, factory); !errors.Is(err, listenErr) {
		t.Fatalf("expected listen error, got %v", err)
	}
	if !stopped {
		t.Fatalf("expected background jobs stopped")
	}
}

func TestRunFactoryError(t *testing.T) {
	factory := func(config.Config, envFn) (*gateway, error) { return nil, errors.New("boom") }
	listen := func(_ *http.Server) error {
		t.Fatalf("listen must not be called")
		return nil
	}
	if err := run(nil, noEnv, listen, factory); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRunLoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "specgate.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":9999\"\nrules_path: \"./rules/speclint.yaml\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	factory := func(cfg config.Config, _ envFn) (*gateway, error) {
		if cfg.ListenAddr != ":9999" {
			t.Fatalf("expected addr from config, got %s", cfg.ListenAddr)
		}
		if cfg.RulesPath != "./rules/speclint.yaml" {
			t.Fatalf("expected rules path from config, got %s", cfg.RulesPath)
		}
		return &gateway{server: &http.Server{Addr: cfg.ListenAddr}}, nil
	}
	listen := func(_ *http.Server) error { return http.ErrServerClosed }

	if err := run(nil, envMap(map[string]string{"SPECGATE_CONFIG_PATH": path}), listen, factory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveConfigEnvOverrides(t *testing.T) {
	cfg, err := resolveConfig("", envMap(map[string]string{
		"SPECGATE_RULES_PATH":    "custom.yaml",
		"GITHUB_TOKEN":           "tkn",
		"GITHUB_OWNER":           "acme",
		"GITHUB_REPO":            "docs",
		"SPECGATE_LEDGER_DRIVER": "sqlite",
		"SPECGATE_LEDGER_DSN":    "file:specgate.db",
	}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RulesPath != "custom.yaml" || !cfg.GitHub.Enabled || cfg.GitHub.Repo != "docs" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Ledger.Driver != "sqlite" || cfg.Ledger.DSN != "file:specgate.db" {
		t.Fatalf("unexpected ledger config %+v", cfg.Ledger)
	}

	partial, err := resolveConfig("", envMap(map[string]string{"GITHUB_TOKEN": "tkn"}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if partial.GitHub.Enabled {
		t.Fatalf("partial credentials must not enable the tracker")
	}
}

func TestRunInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("github:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	factory := func(config.Config, envFn) (*gateway, error) {
		t.Fatalf("factory must not be called")
		return nil, nil
	}
	if err := run([]string{"-config", path}, noEnv, nil, factory); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "a", "b"); got != "a" {
		t.Fatalf("expected a, got %s", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Fatalf("expected empty, got %s", got)
	}
}

func TestListenAndServeInvalidAddr(t *testing.T) {
	if err := listenAndServe(&http.Server{Addr: "127.0.0.1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMainNoError(t *testing.T) {
	oldRun := runFn
	oldFatal := fatalf
	defer func() {
		runFn = oldRun
		fatalf = oldFatal
	}()

	runFn = func([]string, envFn, listenFn, serverFactory) error { return nil }

	called := false
	fatalf = func(string, ...any) { called = true }

	main()
	if called {
		t.Fatalf("unexpected fatal call")
	}
}

func TestMainError(t *testing.T) {
	oldRun := runFn
	oldFatal := fatalf
	defer func() {
		runFn = oldRun
		fatalf = oldFatal
	}()

	runFn = func([]string, envFn, listenFn, serverFactory) error { return errors.New("boom") }

	called := false
	fatalf = func(string, ...any) { called = true }

	main()
	if !called {
		t.Fatalf("expected fatal call")
	}
}
