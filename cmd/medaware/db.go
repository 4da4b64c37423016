package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/medication"
	"github.com/medaware/medaware/internal/prediction"
	"github.com/medaware/medaware/internal/profile"
	"github.com/medaware/medaware/internal/symptom"
)

func newDBCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "ping",
			Short: "Check the database connection",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, opts, nil, func(db medaware.DBService) error {
					if err := db.Ping(cmd.Context()); err != nil {
						return fmt.Errorf("ping failed: %w", err)
					}

					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", db.Driver())

					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create tables, collections and indexes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, opts, storedModels(), func(db medaware.DBService) error {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: migrated %d models\n", db.Driver(), len(storedModels()))
					return nil
				})
			},
		},
	)

	return cmd
}

func storedModels() []medaware.Model {
	return []medaware.Model{
		&medication.Medication{},
		&symptom.Symptom{},
		&prediction.SymptomPrediction{},
		&profile.Profile{},
	}
}

// withDB opens the configured database, migrating models, and closes it after fn.
func withDB(cmd *cobra.Command, opts *rootOptions, models []medaware.Model, fn func(medaware.DBService) error) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := medaware.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	db, err := medaware.OpenDBService(ctx, cfg.Database, logger, models...)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	return fn(db)
}
