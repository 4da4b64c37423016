package main

import (
	"github.com/spf13/cobra"

	"github.com/medaware/medaware/internal/config"
)

type rootOptions struct {
	envFiles []string
}

func (o *rootOptions) load() (config.Config, error) {
	return config.Load(o.envFiles...)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "medaware",
		Short:         "MedAware health tracking backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load before reading the environment")

	cmd.AddCommand(
		newServeCmd(opts),
		newClassifyCmd(opts),
		newDBCmd(opts),
	)

	return cmd
}
