package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/ventureml/config"
	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/pkg/errors"
	"github.com/YuminosukeSato/ventureml/pkg/log"
	"github.com/YuminosukeSato/ventureml/venture"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "ventureml",
		Short:        "Venture failure classifiers and their teaching web app",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")

	cmd.AddCommand(newServeCmd(opts), newTrainCmd(opts))
	return cmd
}

// setup loads the configuration and installs the process logger.
func (o *rootOptions) setup() (*config.Config, log.Logger, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := log.Setup(log.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// flowOptions translates the configuration of one flow into venture options.
func flowOptions(cfg *config.Config, f venture.Flow, logger log.Logger) []venture.Option {
	opts := []venture.Option{
		venture.WithTestSize(cfg.Split.TestSize),
		venture.WithSeed(cfg.Split.Seed),
		venture.WithCVFolds(cfg.Flows.CVFolds),
		venture.WithLogger(logger),
	}
	switch f {
	case venture.FlowLogistic:
		opts = append(opts, venture.WithImagePath(cfg.Flows.Logistic.Image))
	case venture.FlowNeighbors:
		opts = append(opts,
			venture.WithImagePath(cfg.Flows.Neighbors.Image),
			venture.WithNeighbors(cfg.Flows.Neighbors.K),
		)
	}
	return opts
}

// trainFlows trains the given flows concurrently on the shared dataset.
func trainFlows(ctx context.Context, cfg *config.Config, ds *dataset.Dataset, flows []venture.Flow, logger log.Logger) (map[venture.Flow]*venture.Context, error) {
	results := make([]*venture.Context, len(flows))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range flows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vc, err := venture.Train(f, ds, flowOptions(cfg, f, logger)...)
			if err != nil {
				return errors.Wrapf(err, "train %s", f)
			}
			results[i] = vc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[venture.Flow]*venture.Context, len(flows))
	for i, f := range flows {
		out[f] = results[i]
	}
	return out, nil
}
