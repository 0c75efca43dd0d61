package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newKingdomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kingdom",
		Aliases: []string{"kingdoms"},
		Short:   "Kingdom management commands",
	}

	cmd.AddCommand(newKingdomListCmd())
	cmd.AddCommand(newKingdomCreateCmd())
	cmd.AddCommand(newKingdomGetCmd())
	cmd.AddCommand(newKingdomActivateCmd())
	cmd.AddCommand(newKingdomDeleteCmd())

	return cmd
}

func newKingdomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the kingdoms you can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Kingdom

			if err := client.Get("/api/multi-kingdoms", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newKingdomCreateCmd() *cobra.Command {
	var name, ruler string
	var treasury int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Found a new kingdom",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"name":           name,
				"ruler":          ruler,
				"royal_treasury": treasury,
			}
			var result Kingdom

			if err := client.Post("/api/multi-kingdoms", req, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Kingdom name (required)")
	cmd.Flags().StringVar(&ruler, "ruler", "", "Ruler")
	cmd.Flags().IntVar(&treasury, "treasury", 0, "Royal treasury")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKingdomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one kingdom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Kingdom

			if err := client.Get(fmt.Sprintf("/api/multi-kingdom/%s", args[0]), &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newKingdomActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a kingdom the default for new cities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Kingdom

			if err := client.Post(fmt.Sprintf("/api/multi-kingdom/%s/activate", args[0]), nil, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage(fmt.Sprintf("Active kingdom: %s (%s)", result.Name, result.ID))
			return nil
		},
	}
}

func newKingdomDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a kingdom and all its cities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/multi-kingdom/%s", args[0])); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage("Kingdom deleted")
			return nil
		},
	}
}

func newCityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "city",
		Aliases: []string{"cities"},
		Short:   "City management commands",
	}

	cmd.AddCommand(newCityCreateCmd())
	cmd.AddCommand(newCityGetCmd())

	return cmd
}

func newCityCreateCmd() *cobra.Command {
	var kingdomID, name, governor string
	var population, treasury int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Found a city in a kingdom (default: the active kingdom)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"name":       name,
				"governor":   governor,
				"population": population,
				"treasury":   treasury,
			}
			if kingdomID != "" {
				req["kingdom_id"] = kingdomID
			}
			var result City

			if err := client.Post("/api/cities", req, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&kingdomID, "kingdom", "", "Kingdom id")
	cmd.Flags().StringVar(&name, "name", "", "City name (required)")
	cmd.Flags().StringVar(&governor, "governor", "", "Governor")
	cmd.Flags().IntVar(&population, "population", 0, "Initial population")
	cmd.Flags().IntVar(&treasury, "treasury", 0, "City treasury")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newCityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one city and its registry sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result City

			if err := client.Get(fmt.Sprintf("/api/city/%s", args[0]), &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}
