package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
)

func newFormatCmd() *cobra.Command {
	var (
		statePath string
		at        string
		partial   bool
	)
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Print the submission payload for a file of answers",
		Long: `Reads a YAML file of wizard answers and prints the JSON payload the
wizard would submit for analysis. Incomplete answers are refused unless
--partial is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				now = t
			}

			doc, err := readDocument(statePath)
			if err != nil {
				return err
			}
			st := doc.State()

			var payload wizard.Payload
			if partial {
				payload = wizard.Format(st, now)
			} else if payload, err = wizard.Prepare(st, now); err != nil {
				return fmt.Errorf("format %s: %w", statePath, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		},
	}
	cmd.Flags().StringVar(&statePath, "state", "", "YAML file of wizard answers (required)")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 timestamp to stamp the payload with (default now)")
	cmd.Flags().BoolVar(&partial, "partial", false, "format answers even when some steps are invalid")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func readDocument(path string) (wizard.Document, error) {
	var doc wizard.Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read answers: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return doc, nil
}
