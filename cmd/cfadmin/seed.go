package main

import (
	"cfstudy/internal/model"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	seedUser      string
	seedSession   string
	seedCondition string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a participant and sample records in every stored shape",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := connect(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		if err := a.Participants.Upsert(ctx, &model.Participant{ID: seedUser, Condition: seedCondition}); err != nil {
			return fmt.Errorf("upsert participant: %w", err)
		}

		docs := sampleDocs(seedUser, seedSession, time.Now().UTC())
		if _, err := a.DB.Collection("recordings").InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert recordings: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "participant %s (%s)\n", seedUser, seedCondition)
		for _, d := range docs {
			doc := d.(bson.M)
			fmt.Fprintf(out, "  %s/%s/%s\n", seedUser, seedSession, doc["recordingId"])
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedUser, "user", "demo-participant", "participant id")
	seedCmd.Flags().StringVar(&seedSession, "session", "demo-session", "session id")
	seedCmd.Flags().StringVar(&seedCondition, "condition", "reflect", "study condition")
}

// sampleDocs returns one recording per historical document shape, each with
// ratings that need repair
func sampleDocs(userID, sessionID string, now time.Time) []interface{} {
	texts := []string{
		"I could have set an alarm for the morning run.",
		"I could have laid out my gym clothes the night before.",
		"I could have asked a friend to join me.",
	}
	key := func() bson.M {
		id := uuid.NewString()
		return bson.M{"_id": fmt.Sprintf("%s/%s/%s", userID, sessionID, id), "userId": userID, "sessionId": sessionID, "recordingId": id}
	}

	flattened := key()
	flattened["generatedCfTexts"] = texts
	flattened["humanFeasibilityRating"] = bson.A{4, 7}
	flattened["questionIndex"] = 0
	flattened["generatedAt"] = now
	flattened["transcribedSource"] = "I meant to run this morning but stayed in bed."
	flattened["selectedAlternative"] = bson.M{"index": 0, "text": texts[0], "selectedAt": now, "feasibilityRating": 2}

	results := key()
	results["counterfactualResults"] = bson.M{
		"generatedCfTexts": texts[:2],
		"questionIndex":    1,
		"generatedAt":      now.Add(-24 * time.Hour),
	}

	nested := key()
	nested["counterfactuals"] = bson.M{
		"generatedCfTexts":       texts,
		"humanFeasibilityRating": bson.A{"3", 5, 0, 2, 2},
		"generatedAt":            now.Add(-48 * time.Hour).Format(time.RFC3339),
	}

	return []interface{}{flattened, results, nested}
}
