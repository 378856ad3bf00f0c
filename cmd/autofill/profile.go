package main

import (
	"fmt"
	"os"

	"github.com/jonathan/form-autofill/internal/observability"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/jonathan/form-autofill/internal/schemas"
	"github.com/jonathan/form-autofill/internal/store"
	"github.com/jonathan/form-autofill/internal/types"
	"github.com/spf13/cobra"
)

var profileOutPath string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the saved profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProfile(cmd, false, func(p *types.Profile) error {
			observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(p)
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a standard profile field",
	Long: fmt.Sprintf(`Set a standard profile field. An empty VALUE clears the field.

Keys: %v`, types.StandardFields),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfile(cmd, true, func(p *types.Profile) error {
			return p.SetValue(args[0], args[1])
		})
	},
}

var profileAddFieldCmd = &cobra.Command{
	Use:   "add-field NAME VALUE",
	Short: "Add or update a custom field",
	Long: `Add a custom field, or update the value of an existing field with the same name.
The NAME is matched against form labels like the standard field names.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" || args[1] == "" {
			return fmt.Errorf("custom fields need a non-empty name and value")
		}
		return withProfile(cmd, true, func(p *types.Profile) error {
			p.SetCustomField(args[0], args[1])
			return nil
		})
	},
}

var profileRemoveFieldCmd = &cobra.Command{
	Use:   "remove-field NAME",
	Short: "Remove a custom field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfile(cmd, true, func(p *types.Profile) error {
			if !p.RemoveCustomField(args[0]) {
				return fmt.Errorf("no custom field named %q", args[0])
			}
			return nil
		})
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the saved profile with a JSON profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read profile file: %w", err)
		}
		imported, err := profile.Import(data)
		if err != nil {
			return err
		}
		return withProfile(cmd, true, func(p *types.Profile) error {
			*p = *imported
			return nil
		})
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the saved profile as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withProfile(cmd, false, func(p *types.Profile) error {
			data, err := profile.Export(p)
			if err != nil {
				return err
			}
			if profileOutPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(profileOutPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write profile file: %w", err)
			}
			return nil
		})
	},
}

var profileSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema that import accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), schemas.ProfileSchema())
		return err
	},
}

func init() {
	profileExportCmd.Flags().StringVarP(&profileOutPath, "out", "o", "", "Output path (default stdout)")

	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profileAddFieldCmd,
		profileRemoveFieldCmd, profileImportCmd, profileExportCmd, profileSchemaCmd)
	rootCmd.AddCommand(profileCmd)
}

// withProfile loads the profile, runs fn on it and saves it back when save is set.
func withProfile(cmd *cobra.Command, save bool, fn func(*types.Profile) error) error {
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
	if err := fn(p); err != nil {
		return err
	}
	if !save {
		return nil
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return saveProfile(cmd, s, p)
}

func saveProfile(cmd *cobra.Command, s store.Store, p *types.Profile) error {
	if err := profile.Save(cmd.Context(), s, p); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Profile saved.")
	return nil
}
