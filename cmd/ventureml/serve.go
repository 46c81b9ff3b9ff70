package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ventureml/config"
	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/server"
	"github.com/YuminosukeSato/ventureml/store"
	"github.com/YuminosukeSato/ventureml/venture"
	"github.com/YuminosukeSato/ventureml/weight"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train both flows and serve the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := root.setup()
			if err != nil {
				return err
			}
			defer closer.Close()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("Serve failed", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	ds, err := dataset.Load(cfg.Data.Path, dataset.WithLogger(logger))
	if err != nil {
		return err
	}
	flows, err := trainFlows(ctx, cfg, ds, venture.Flows, logger)
	if err != nil {
		return err
	}
	wm, err := weight.Fit(weight.Samples(cfg.Weight.Samples, cfg.Weight.Seed), logger)
	if err != nil {
		return err
	}

	var history store.History = store.Noop{}
	if cfg.History.Path != "" {
		db, err := store.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		history = db
	}

	srv, err := server.New(ctx, server.Deps{
		Config:  cfg,
		Flows:   flows,
		Weight:  wm,
		History: history,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
