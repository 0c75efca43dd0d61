package cli

import (
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var registry, cityID string
	var count int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Auto-generate registry records in a city",
		Long: `Synthesize records from the weighted tables and append them to a city.

Registry types: citizens, slaves, livestock, garrison (or soldiers), crimes, tribute.
Pass --seed to make the generated attributes reproducible.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"registry_type": registry,
				"city_id":       cityID,
				"count":         count,
			}
			if cmd.Flags().Changed("seed") {
				req["seed"] = seed
			}
			var result GenerateResult

			if err := client.Post("/api/auto-generate", req, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&registry, "type", "", "Registry type (required)")
	cmd.Flags().StringVar(&cityID, "city", "", "City id (required)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of records")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("city")

	return cmd
}
