// Package cli implements the tagtical CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/tagtical/internal/config"
	"github.com/rcliao/tagtical/internal/metrics"
	"github.com/rcliao/tagtical/internal/model"
	"github.com/rcliao/tagtical/internal/store"
	"github.com/rcliao/tagtical/internal/taggable"
)

var (
	configPath string
	dbPath     string
	formatFlag string
	verbose    bool

	recorder = metrics.New()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "tagtical",
	Short: "Hierarchical, typed and owned tags",
	Long:  "Tag records with typed, weighted and owned tags and query them by tag hierarchy. SQLite or PostgreSQL backed.",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		samples, err := recorder.Snapshot()
		if err != nil {
			return
		}
		log := logger(cmd.ErrOrStderr())
		for _, s := range samples {
			if s.Value > 0 {
				log.Debug("metric", slog.String("name", s.Name), slog.Float64("value", s.Value))
			}
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $TAGTICAL_CONFIG)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path or DSN (default: $TAGTICAL_DSN or ~/.tagtical/tagtical.db)")
	RootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite or postgres (default: $TAGTICAL_DRIVER or sqlite)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json, yaml or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log reconciliation details to stderr")
}

func logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("TAGTICAL_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if d, _ := cmd.Flags().GetString("driver"); d != "" && d != cfg.Driver {
		if dbPath == "" {
			return nil, fmt.Errorf("--driver %s needs --db", d)
		}
		cfg.Driver = d
	}
	if dbPath != "" {
		cfg.DSN = dbPath
	}
	return cfg, cfg.Validate()
}

// app is an opened store with an engine and the configured kinds.
type app struct {
	store  *store.SQLStore
	engine *taggable.Engine
	log    *slog.Logger
}

func (a *app) Close() error { return a.store.Close() }

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("tag types: %w", err)
	}
	s, err := store.Open(cfg.Driver, cfg.DSN, cfg.StoreOptions()...)
	if err != nil {
		return nil, err
	}
	log := logger(cmd.ErrOrStderr())
	e := taggable.New(s, reg, cfg.Options(), taggable.WithLogger(log), taggable.WithMetrics(recorder))
	if err := cfg.Declare(e); err != nil {
		s.Close()
		return nil, err
	}
	return &app{store: s, engine: e, log: log}, nil
}

// kind returns the configured kind, declaring an ad-hoc one with only the
// base type when the config does not name it.
func (a *app) kind(name string) (*taggable.Kind, error) {
	if k, ok := a.engine.Kind(name); ok {
		return k, nil
	}
	a.log.Debug("declaring ad-hoc kind", slog.String("kind", name))
	return a.engine.Declare(name, "", nil)
}

func (a *app) record(ctx context.Context, kind, id string) (*taggable.Record, error) {
	k, err := a.kind(kind)
	if err != nil {
		return nil, err
	}
	return a.engine.Open(ctx, k, id)
}

func ownerFlags(cmd *cobra.Command) {
	cmd.Flags().String("owner", "", "Tagger id")
	cmd.Flags().String("owner-type", "", "Tagger type (stored with a polymorphic tagger)")
}

func ownerFrom(cmd *cobra.Command) model.Owner {
	id, _ := cmd.Flags().GetString("owner")
	typ, _ := cmd.Flags().GetString("owner-type")
	return model.Owner{ID: id, Type: typ}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
