package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sponsorlens/riskscan/internal/model"
)

var outcomeName string

var outcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Print the persisted outcome for a creator",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		creator := model.Creator{Name: outcomeName}
		outcome, err := st.GetOutcome(ctx, creator.Key())
		if err != nil {
			return eris.Wrap(err, "get outcome")
		}
		if outcome == nil {
			return eris.Errorf("no outcome stored for %q", outcomeName)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	outcomeCmd.Flags().StringVar(&outcomeName, "name", "", "creator display name (required)")
	_ = outcomeCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(outcomeCmd)
}
