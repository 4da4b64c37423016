package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/agent"
	"github.com/medaware/medaware/internal/classifier"
	"github.com/medaware/medaware/internal/config"
	"github.com/medaware/medaware/internal/medication"
	"github.com/medaware/medaware/internal/prediction"
	"github.com/medaware/medaware/internal/profile"
	"github.com/medaware/medaware/internal/symptom"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app := fx.New(appOptions(cfg)...)
	if err := app.Err(); err != nil {
		return err
	}

	app.Run()

	return nil
}

func appOptions(cfg config.Config) []fx.Option {
	opts := medaware.BuildAppOpts(cfg)
	opts = append(opts, medaware.BuildServerOpts()...)

	return append(opts,
		classifier.Module,
		medication.Module,
		prediction.Module,
		symptom.Module,
		agent.Module,
		profile.Module,
	)
}
