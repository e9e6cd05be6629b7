package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sponsorlens/riskscan/internal/model"
	"github.com/sponsorlens/riskscan/internal/pipeline"
)

var (
	scanName       string
	scanHandle     string
	scanChannelID  string
	scanChannelURL string
	scanAliases    []string
	scanForce      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a reputational-risk scan for a single creator",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		creator := model.Creator{
			Name:       scanName,
			Handle:     scanHandle,
			ChannelID:  scanChannelID,
			ChannelURL: scanChannelURL,
		}

		outcome, err := env.Pipeline.Run(ctx, creator, pipeline.RunOptions{
			Aliases: scanAliases,
			Force:   scanForce,
		})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("scan complete",
			zap.String("creator", creator.Name),
			zap.String("risk_level", string(outcome.RiskLevel)),
			zap.Float64("confidence", outcome.Confidence),
			zap.Int("evidence", len(outcome.Evidence)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanName, "name", "", "creator display name (required)")
	scanCmd.Flags().StringVar(&scanHandle, "handle", "", "creator platform handle")
	scanCmd.Flags().StringVar(&scanChannelID, "channel-id", "", "creator platform channel ID")
	scanCmd.Flags().StringVar(&scanChannelURL, "channel-url", "", "creator channel URL")
	scanCmd.Flags().StringArrayVar(&scanAliases, "alias", nil, "additional known alias (repeatable)")
	scanCmd.Flags().BoolVar(&scanForce, "force", false, "rescan even when a fresh outcome exists")
	_ = scanCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(scanCmd)
}
