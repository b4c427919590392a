// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/config"
	"github.com/rhyolite-dev/rhyolite/internal/schema"
	"github.com/rhyolite-dev/rhyolite/internal/server"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	_ "github.com/rhyolite-dev/rhyolite/internal/store/sqlite" // register sqlite backend
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rhyolite server",
		Long:  "Load configuration, open the graph store, and serve the HTTP API until interrupted.",
		RunE:  runServe,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		// First run: drop a commented default config in ~/.config/rhyolite.
		if path := config.BootstrapConfig(); path != "" {
			cfgPath = path
		} else if defaultPath, err := config.DefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				cfgPath = defaultPath
			}
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return rherr.Wrap(err, rherr.CodeCLISetupFailure, "loading config")
	}

	// Apply any flag overrides that viper resolved.
	if listen := viper.GetString("networking.listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	blobs, err := blob.NewFileStore(cfg.Attachments.Dir)
	if err != nil {
		return rherr.Wrap(err, rherr.CodeCLISetupFailure, "opening attachment store")
	}

	stores, err := store.Open(&cfg.Storage, store.Deps{
		Validator: schema.NewValidator(),
		Blobs:     blobs,
	})
	if err != nil {
		return rherr.Wrap(err, rherr.CodeCLISetupFailure, "opening graph store")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Warn("closing graph store", "error", err)
		}
	}()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	}, stores, blobs)
	if err != nil {
		return rherr.Wrap(err, rherr.CodeCLISetupFailure, "creating server")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting rhyolite",
		"listen", cfg.Networking.Listen,
		"db", cfg.Storage.Path,
		"attachments", blobs.Root(),
	)
	return srv.Start(ctx)
}
