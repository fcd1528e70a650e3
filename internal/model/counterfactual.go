package model

import (
	"fmt"
	"time"
)

// RecordKey identifies one counterfactual record
type RecordKey struct {
	UserID      string `json:"userId" bson:"userId"`
	SessionID   string `json:"sessionId" bson:"sessionId"`
	RecordingID string `json:"recordingId" bson:"recordingId"`
}

// String renders the key as "user/session/recording"
func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.UserID, k.SessionID, k.RecordingID)
}

// Valid reports whether all three parts are set
func (k RecordKey) Valid() bool {
	return k.UserID != "" && k.SessionID != "" && k.RecordingID != ""
}

// AlternativeSource records where the alternatives came from
type AlternativeSource string

const (
	SourceGenerated AlternativeSource = "generated"
	SourceFallback  AlternativeSource = "fallback" // Placeholder texts after a failed generation
)

// SelectedAlternative is the alternative the participant picked as their preferred reframing
type SelectedAlternative struct {
	Index      int       `json:"index" bson:"index"`
	Text       string    `json:"text" bson:"text"` // Copied at selection time, not re-synced on regeneration
	SelectedAt time.Time `json:"selectedAt" bson:"selectedAt"`
	// Mirror of humanFeasibilityRating[index]; the array is authoritative
	FeasibilityRating *int `json:"feasibilityRating,omitempty" bson:"feasibilityRating,omitempty"`
}

// CounterfactualRecord holds the generated alternatives for one recording and their ratings
type CounterfactualRecord struct {
	Key                 RecordKey              `json:"key" bson:"-"`
	GeneratedTexts      []string               `json:"generatedCfTexts" bson:"generatedCfTexts"`
	QuestionIndex       int                    `json:"questionIndex" bson:"questionIndex"`
	GeneratedAt         time.Time              `json:"generatedAt" bson:"generatedAt"`
	TranscribedSource   string                 `json:"transcribedSource,omitempty" bson:"transcribedSource,omitempty"`
	Ratings             []int                  `json:"humanFeasibilityRating" bson:"humanFeasibilityRating"`
	SelectedAlternative *SelectedAlternative   `json:"selectedAlternative,omitempty" bson:"selectedAlternative,omitempty"`
	GenerationLogs      map[string]interface{} `json:"generationLogs,omitempty" bson:"generationLogs,omitempty"`
	Source              AlternativeSource      `json:"source,omitempty" bson:"source,omitempty"`
	Revision            int64                  `json:"revision" bson:"revision"`
	UpdatedAt           time.Time              `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// HasAlternatives reports whether there is anything to rate
func (r *CounterfactualRecord) HasAlternatives() bool {
	return r != nil && len(r.GeneratedTexts) > 0
}

// Clone returns a deep copy of the mutable slices and the selection
func (r *CounterfactualRecord) Clone() *CounterfactualRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.GeneratedTexts != nil {
		out.GeneratedTexts = append([]string(nil), r.GeneratedTexts...)
	}
	if r.Ratings != nil {
		out.Ratings = append([]int(nil), r.Ratings...)
	}
	if r.SelectedAlternative != nil {
		sel := *r.SelectedAlternative
		if sel.FeasibilityRating != nil {
			v := *sel.FeasibilityRating
			sel.FeasibilityRating = &v
		}
		out.SelectedAlternative = &sel
	}
	return &out
}

// RecordPatch is a field-level update. Arrays replace the stored array wholesale.
type RecordPatch struct {
	Ratings        []int                // nil leaves ratings untouched
	Selection      *SelectedAlternative // set selection
	ClearSelection bool                 // unset selection, wins over Selection
}

// Empty reports whether the patch changes nothing
func (p RecordPatch) Empty() bool {
	return p.Ratings == nil && p.Selection == nil && !p.ClearSelection
}

// Generation is the outcome of one generation event
type Generation struct {
	Texts             []string
	QuestionIndex     int
	GeneratedAt       time.Time
	TranscribedSource string
	Logs              map[string]interface{}
	Source            AlternativeSource
}
