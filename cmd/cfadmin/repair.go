package main

import (
	"cfstudy/internal/model"
	"cfstudy/internal/service"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	repairAll bool
	repairKey model.RecordKey
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reconcile stored ratings with their alternatives",
	Long: `Rewrites humanFeasibilityRating only where it is out of step with
generatedCfTexts. Records that are already consistent are not touched.`,
	Example: `  cfadmin repair --user p-17 --session 2025-w12 --recording 6f1c
  cfadmin repair --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if repairAll == repairKey.Valid() {
			return errors.New("pass either --all or all of --user, --session and --recording")
		}

		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		ratings := service.NewRatingService(a.Counterfactuals, a.Config.RatingWriteRetries)

		if !repairAll {
			repaired, err := ratings.ValidateAndRepair(ctx, repairKey)
			if err != nil {
				return fmt.Errorf("repair %s: %w", repairKey, err)
			}
			if repaired {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: repaired\n", repairKey)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: already consistent\n", repairKey)
			}
			return nil
		}

		res, err := service.NewRepairSweeper(a.Counterfactuals, ratings).Run(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "scanned:  %d\nrepaired: %d\nfailed:   %d\n", res.Scanned, res.Repaired, res.Failed)
		if err != nil {
			return err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d records could not be repaired", res.Failed)
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().BoolVar(&repairAll, "all", false, "repair every record")
	repairCmd.Flags().StringVar(&repairKey.UserID, "user", "", "participant id")
	repairCmd.Flags().StringVar(&repairKey.SessionID, "session", "", "session id")
	repairCmd.Flags().StringVar(&repairKey.RecordingID, "recording", "", "recording id")
}
