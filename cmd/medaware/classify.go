package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medaware/medaware"
	"github.com/medaware/medaware/internal/classifier"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify symptom text and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			if mode != "" {
				cfg.Classifier.Mode = strings.ToLower(mode)
			}

			logger := medaware.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)

			c, err := classifier.NewFromConfig(cfg.Classifier, logger)
			if err != nil {
				return err
			}

			result, err := c.Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "override CLASSIFIER_MODE (zero-shot, fine-tuned, keyword)")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
