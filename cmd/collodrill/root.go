package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/japaniel/collodrill/pkg/config"
	"github.com/japaniel/collodrill/pkg/logger"
	"github.com/japaniel/collodrill/pkg/rank"
	"github.com/japaniel/collodrill/pkg/session"
	"github.com/japaniel/collodrill/pkg/store"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	dbPath     string
	configPath string
	logMode    string
	format     string

	cfg   config.Config
	log   *logger.Logger
	store *store.SQLiteStore
	now   func() time.Time
}

// run executes one CLI invocation and releases the store and logger.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{now: time.Now}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return err
	}
	return nil
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "collodrill",
		Short:         "Drill Japanese collocations with spaced repetition",
		Long:          "Recommends verbs, adjectives and nouns to practice and drills the words they pair with. SQLite-backed, single binary.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&a.dbPath, "db", "d", "", "Database path (default: $COLLODRILL_DB or ~/.collodrill/collodrill.db)")
	pf.StringVar(&a.configPath, "config", config.DefaultPath(), "Config file")
	pf.StringVar(&a.logMode, "log-mode", "", "Log mode: dev, prod or quiet (default: $COLLODRILL_LOG_MODE or config)")
	pf.StringVarP(&a.format, "format", "f", "text", "Output format: text or json")

	root.AddCommand(
		newImportCmd(a),
		newRecommendCmd(a),
		newDrillCmd(a),
		newStatsCmd(a),
		newWordCmd(a),
		newStudyListCmd(a),
		newResetCmd(a),
	)
	return root
}

// setup resolves the configuration with flags taking precedence, then opens
// the logger and the store.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logMode != "" {
		cfg.LogMode = a.logMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch a.format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q", a.format)
	}
	a.cfg = cfg

	a.log, err = logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.store, err = store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.log.Debug("store opened", "path", cfg.DBPath)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}

// trainer loads the catalog from the store and fills tc from the
// configuration.
func (a *app) trainer(ctx context.Context, tc session.Config) (*session.Trainer, error) {
	cat, err := store.LoadCatalog(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(cat.Entries()) == 0 {
		return nil, fmt.Errorf("catalog is empty; run collodrill import first")
	}
	tc.MaxSize = a.cfg.Drill.MaxSize
	tc.NewTarget = a.cfg.Drill.NewTarget
	tc.Logger = a.log
	tc.Now = a.now
	return session.NewTrainer(a.store, cat, tc)
}

// scope returns the named study list, the configured default list, or nil
// for the whole catalog.
func (a *app) scope(ctx context.Context, name string) (rank.Scope, string, error) {
	if name == "" {
		name = a.cfg.StudyList
	}
	if name == "" {
		return nil, "", nil
	}
	l, ok, err := a.store.GetStudyList(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", fmt.Errorf("study list %q not found", name)
	}
	return l, name, nil
}

func (a *app) jsonOutput() bool { return a.format == "json" }

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func glossOf(g string) string {
	if g == "" {
		return ""
	}
	return "\"" + strings.TrimSpace(g) + "\""
}
