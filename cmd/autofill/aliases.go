package main

import (
	"fmt"

	"github.com/jonathan/form-autofill/internal/matching"
	"github.com/jonathan/form-autofill/internal/observability"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/spf13/cobra"
)

var aliasLabel string

var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Show how form labels map to profile fields",
	Long: `Print the field mapping used for the saved profile: standard fields with their built-in
and overlay aliases, then one entry per custom field, in the order they are tried.

With --label, print the field a label resolves to instead.`,
	Example: `  autofill aliases
  autofill aliases --label "Your Email Address *"`,
	Args: cobra.NoArgs,
	RunE: runAliases,
}

func init() {
	aliasesCmd.Flags().StringVar(&aliasLabel, "label", "", "Label text to resolve")
	rootCmd.AddCommand(aliasesCmd)
}

func runAliases(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	p, err := profile.Load(ctx, s)
	if err != nil {
		return err
	}
	overlay, err := loadAliasOverlay()
	if err != nil {
		return err
	}
	mapping := matching.BuildMapping(p, overlay)

	out := cmd.OutOrStdout()
	if aliasLabel == "" {
		observability.NewPrinter(out).PrintMapping(mapping)
		return nil
	}

	normalized := matching.Normalize(aliasLabel)
	if key, ok := mapping.Match(aliasLabel); ok {
		fmt.Fprintf(out, "%q (%q) -> %s\n", aliasLabel, normalized, key)
	} else {
		fmt.Fprintf(out, "%q (%q) matches no field\n", aliasLabel, normalized)
	}
	return nil
}
