package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/davidahmann/specgate/internal/api"
	"github.com/davidahmann/specgate/internal/auth"
	"github.com/davidahmann/specgate/internal/config"
	"github.com/davidahmann/specgate/internal/ledger"
	"github.com/davidahmann/specgate/internal/ledger/pgstore"
	"github.com/davidahmann/specgate/internal/ledger/sqlstore"
	"github.com/davidahmann/specgate/internal/lint"
	"github.com/davidahmann/specgate/internal/logging"
	"github.com/davidahmann/specgate/internal/metrics"
	"github.com/davidahmann/specgate/internal/rules"
	"github.com/davidahmann/specgate/internal/tracker"
	"github.com/davidahmann/specgate/internal/workflow"
)

func main() {
	if err := runFn(os.Args[1:], os.Getenv, listenAndServe, newServer); err != nil {
		fatalf("server error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

// gateway is a configured server plus the background jobs that must stop
// with it.
type gateway struct {
	server    *http.Server
	log       *logging.Logger
	rulesHash string
	stop      func()
}

func newServer(cfg config.Config, getenv envFn) (*gateway, error) {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	compiled, err := loadRules(cfg.RulesPath)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	engine := lint.NewEngine(compiled)
	engine.Log = logger.Component("lint")
	engine.Metrics = m

	// a disabled tracker stays unconfigured; review routes then end in error
	trackerCfg := tracker.Config{BaseURL: cfg.GitHub.APIBaseURL, Timeout: cfg.GitHubTimeout()}
	if cfg.GitHub.Enabled {
		trackerCfg.Token = cfg.GitHub.Token
		trackerCfg.Owner = cfg.GitHub.Owner
		trackerCfg.Repo = cfg.GitHub.Repo
	}
	gh := tracker.NewGitHub(trackerCfg, logger.Component("tracker"))

	manager := workflow.NewManager(gh, compiled.Table.Tracker)
	manager.RouteTimeout = cfg.RouteTimeout()
	if cfg.Workflow.RecentLimit > 0 {
		manager.RecentLimit = cfg.Workflow.RecentLimit
	}
	manager.Log = logger.Component("workflow")
	manager.Metrics = m

	reports, closeLedger, err := openLedger(cfg.Ledger)
	if err != nil {
		return nil, err
	}

	stopRefresh, err := scheduleRefresh(cfg.Workflow.RefreshSchedule, manager, logger)
	if err != nil {
		_ = closeLedger()
		return nil, err
	}
	stop := func() {
		stopRefresh()
		if err := closeLedger(); err != nil {
			logger.Warn().Err(err).Msg("close ledger")
		}
	}

	h := &api.Handler{
		Auth:      auth.NewAuthenticatorFromEnv(getenv),
		Engine:    engine,
		Workflows: manager,
		Metrics:   m,
		Log:       logger.Component("http"),
		Reports:   reports,
		ReportDir: cfg.Ledger.ReportDir,
	}
	return &gateway{
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.NewRouter(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log:       logger,
		rulesHash: compiled.Hash,
		stop:      stop,
	}, nil
}

func loadRules(path string) (*rules.Compiled, error) {
	if path == "" {
		return rules.Compile(rules.Default())
	}
	loaded, err := rules.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("load rules %s: %w", path, err)
	}
	return rules.Compile(loaded)
}

// openLedger opens the configured report store and brings its schema up to
// date. The returned func releases the underlying database.
func openLedger(cfg config.LedgerConfig) (ledger.Store, func() error, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		return ledger.NewInMemoryStore(), func() error { return nil }, nil
	}
	driver, err := ledger.ParseDriver(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	var (
		store interface {
			ledger.Store
			DB() *sql.DB
			Close() error
		}
		openErr error
	)
	switch driver {
	case ledger.DBSQLite:
		store, openErr = sqlstore.OpenSQLite(cfg.DSN)
	case ledger.DBPostgres:
		store, openErr = pgstore.OpenPostgres(cfg.DSN)
	}
	if openErr != nil {
		return nil, nil, fmt.Errorf("open %s ledger: %w", driver, openErr)
	}
	if err := ledger.Migrate(store.DB(), driver); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate %s ledger: %w", driver, err)
	}
	return store, store.Close, nil
}

func scheduleRefresh(spec string, manager *workflow.Manager, logger *logging.Logger) (func(), error) {
	if spec == "" {
		return func() {}, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		changed := manager.RefreshPending(context.Background())
		logger.Debug().Int("changed", changed).Msg("pending workflows refreshed")
	})
	if err != nil {
		return nil, fmt.Errorf("refresh schedule: %w", err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

type envFn func(string) string
type listenFn func(*http.Server) error
type serverFactory func(cfg config.Config, getenv envFn) (*gateway, error)

func run(args []string, getenv envFn, listen listenFn, factory serverFactory) error {
	fs := flag.NewFlagSet("specgate-gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to specgate config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := resolveConfig(firstNonEmpty(*configPath, getenv("SPECGATE_CONFIG_PATH")), getenv)
	if err != nil {
		return err
	}

	gw, err := factory(cfg, getenv)
	if err != nil {
		return err
	}
	if gw.stop != nil {
		defer gw.stop()
	}

	if gw.log != nil {
		gw.log.LogServerStart(gw.server.Addr, gw.rulesHash)
	}
	if err := listen(gw.server); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// resolveConfig loads the file when given, then applies environment
// overrides and validates the result.
func resolveConfig(path string, getenv envFn) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	cfg.ListenAddr = firstNonEmpty(getenv("SPECGATE_LISTEN_ADDR"), cfg.ListenAddr, ":8080")
	cfg.RulesPath = firstNonEmpty(getenv("SPECGATE_RULES_PATH"), cfg.RulesPath)
	cfg.GitHub.Token = firstNonEmpty(getenv("GITHUB_TOKEN"), cfg.GitHub.Token)
	cfg.GitHub.Owner = firstNonEmpty(getenv("GITHUB_OWNER"), cfg.GitHub.Owner)
	cfg.GitHub.Repo = firstNonEmpty(getenv("GITHUB_REPO"), cfg.GitHub.Repo)
	cfg.Ledger.Driver = firstNonEmpty(getenv("SPECGATE_LEDGER_DRIVER"), cfg.Ledger.Driver)
	cfg.Ledger.DSN = firstNonEmpty(getenv("SPECGATE_LEDGER_DSN"), cfg.Ledger.DSN)
	cfg.Ledger.ReportDir = firstNonEmpty(getenv("SPECGATE_REPORT_DIR"), cfg.Ledger.ReportDir)
	if cfg.GitHub.Token != "" && cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		cfg.GitHub.Enabled = true
	}

	return cfg, cfg.Validate()
}

func listenAndServe(server *http.Server) error {
	return server.ListenAndServe()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
