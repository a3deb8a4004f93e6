// Command storagesyncd is the demo daemon wiring around the storagesync
// reconciliation engine: a cobra CLI that loads environment configuration,
// opens the DuckDB-backed local store, and drives orchestrator.Sync on a
// timer, exposing an rweb status page. None of this is part of the core
// subsystem (§6 says the engine itself has no CLI/env surface) — it is the
// ambient wiring a real repository needs around a library, modeled on the
// teacher's main.go (DB init, JWT init, sync client, web server startup).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rohanthewiz/element"
	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rutil/fileops"
	"github.com/rohanthewiz/rweb"
	"github.com/rohanthewiz/serr"
	"github.com/spf13/cobra"

	"storagesync/config"
	"storagesync/localstore"
	"storagesync/orchestrator"
	"storagesync/remote"
	"storagesync/storageid"
)

func main() {
	logger.SetLogLevel("info")

	// Pick up local overrides the same way the teacher's main.go does,
	// before any STORAGESYNC_* env var is read.
	if issues, err := fileops.EnvFromFile("config/cfg_files/.env"); err != nil {
		for _, issue := range issues {
			logger.Warn("cfg file issue", serr.StringFromErr(issue))
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		logger.LogErr(err, "storagesyncd exited with error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storagesyncd",
		Short: "Runs the storage sync reconciliation engine against a DuckDB local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context())
		},
	}
	root.AddCommand(newDiagnoseCmd())
	return root
}

// newDiagnoseCmd prints the local store's Diagnose report once and exits,
// useful for operators checking dirty-row counts without standing up the
// full daemon.
func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Print a one-shot local store diagnostic report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := localstore.Open(cfg.DBPath)
			if err != nil {
				return serr.Wrap(err, "failed to open local store")
			}
			defer store.Close()

			diag, err := localstore.RunDiagnose(cmd.Context(), store)
			if err != nil {
				return serr.Wrap(err, "diagnose failed")
			}
			logger.Info("local store diagnostic",
				"manifest_version", diag.ManifestVersion,
				"total_ids", diag.TotalLocalIDs,
			)
			return nil
		},
	}
}

// runDaemon loads config, opens the store, and runs the scheduler and
// status page until an OS signal requests shutdown.
func runDaemon(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return serr.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return serr.Wrap(err, "invalid config")
	}
	if !cfg.Enabled {
		logger.Info("storagesync is disabled (set STORAGESYNC_SYNC_ENABLED=true to enable)")
		return nil
	}

	store, err := localstore.Open(cfg.DBPath)
	if err != nil {
		return serr.Wrap(err, "failed to open local store")
	}
	defer store.Close()

	deps := orchestrator.Deps{
		Store:      store,
		Remote:     remote.New(cfg.HubURL, cfg.JWTSecret, cfg.RequestTimeout),
		KeyGen:     storageid.NewKeyGenerator(),
		AccountKey: cfg.AccountKey,
	}

	sched := newScheduler(deps, store, cfg.SyncInterval)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.run(runCtx)

	srv := rweb.NewServer(rweb.ServerOptions{
		Address: cfg.ListenAddr,
		Verbose: false,
	})
	srv.Use(rweb.RequestInfo)
	srv.Get("/", func(c rweb.Context) error {
		c.Response().SetHeader("Content-Type", "text/html; charset=utf-8")

		diag, diagErr := localstore.RunDiagnose(runCtx, store)
		b := element.NewBuilder()
		page := statusPage{
			accountKey: cfg.AccountKey,
			hubURL:     cfg.HubURL,
			sched:      sched.status(),
			diag:       diag,
			diagErr:    diagErr,
		}
		page.Render(b)
		return c.WriteHTML(b.String())
	})

	logger.Info("storagesyncd listening", "addr", cfg.ListenAddr, "hub", cfg.HubURL)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-runCtx.Done():
		logger.Info("storagesyncd shutting down")
		return nil
	case err := <-errCh:
		return serr.Wrap(err, "status server exited")
	}
}
