package repository

import (
	"cfstudy/internal/model"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Field names of the canonical flattened shape
const (
	fieldUserID         = "userId"
	fieldSessionID      = "sessionId"
	fieldRecordingID    = "recordingId"
	fieldTexts          = "generatedCfTexts"
	fieldQuestionIndex  = "questionIndex"
	fieldGeneratedAt    = "generatedAt"
	fieldTranscribed    = "transcribedSource"
	fieldRatings        = "humanFeasibilityRating"
	fieldSelection      = "selectedAlternative"
	fieldLogs           = "generationLogs"
	fieldSource         = "source"
	fieldRevision       = "revision"
	fieldUpdatedAt      = "updatedAt"
	fieldLegacyResults  = "counterfactualResults"
	fieldLegacyNested   = "counterfactuals"
	malformedRatingCell = 0 // Outside the Likert range, so the reconciler resets it
)

// cfFields is the counterfactual block as it may appear at the root or nested
// under one of the legacy keys. Every field is raw so that a malformed value in
// an old document degrades to "absent" instead of failing the whole decode.
type cfFields struct {
	Texts         bson.RawValue `bson:"generatedCfTexts"`
	QuestionIndex bson.RawValue `bson:"questionIndex"`
	GeneratedAt   bson.RawValue `bson:"generatedAt"`
	Transcribed   bson.RawValue `bson:"transcribedSource"`
	Ratings       bson.RawValue `bson:"humanFeasibilityRating"`
	Selection     bson.RawValue `bson:"selectedAlternative"`
	Logs          bson.RawValue `bson:"generationLogs"`
	Source        bson.RawValue `bson:"source"`
}

// counterfactualDoc is what a stored document decodes into before normalization
type counterfactualDoc struct {
	Root        cfFields      `bson:",inline"`
	UserID      string        `bson:"userId"`
	SessionID   string        `bson:"sessionId"`
	RecordingID string        `bson:"recordingId"`
	Revision    bson.RawValue `bson:"revision"`
	UpdatedAt   bson.RawValue `bson:"updatedAt"`
	Results     bson.RawValue `bson:"counterfactualResults"`
	Nested      bson.RawValue `bson:"counterfactuals"`
}

func present(v bson.RawValue) bool {
	return v.Type != 0
}

// layers returns the counterfactual blocks in precedence order:
// flattened root, then counterfactualResults, then counterfactuals.
func (d *counterfactualDoc) layers() []cfFields {
	out := []cfFields{d.Root}
	for _, raw := range []bson.RawValue{d.Results, d.Nested} {
		if raw.Type != bsontype.EmbeddedDocument {
			continue
		}
		var f cfFields
		if err := raw.Unmarshal(&f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// pick returns the first layer value that is present.
// An explicit null at a higher layer still wins, so a cleared field does not
// resurface from a legacy block.
func pick(layers []cfFields, get func(cfFields) bson.RawValue) bson.RawValue {
	for _, l := range layers {
		if v := get(l); present(v) {
			return v
		}
	}
	return bson.RawValue{}
}

// record maps any of the three historical shapes onto the canonical record.
// It does not reconcile ratings; that is the caller's job.
func (d *counterfactualDoc) record() *model.CounterfactualRecord {
	layers := d.layers()
	rec := &model.CounterfactualRecord{
		Key: model.RecordKey{
			UserID:      d.UserID,
			SessionID:   d.SessionID,
			RecordingID: d.RecordingID,
		},
	}

	rec.GeneratedTexts = rawStrings(pick(layers, func(f cfFields) bson.RawValue { return f.Texts }))
	rec.Ratings = rawRatings(pick(layers, func(f cfFields) bson.RawValue { return f.Ratings }))
	if v, ok := rawInt(pick(layers, func(f cfFields) bson.RawValue { return f.QuestionIndex })); ok {
		rec.QuestionIndex = int(v)
	}
	rec.GeneratedAt = rawTime(pick(layers, func(f cfFields) bson.RawValue { return f.GeneratedAt }))
	if s, ok := pick(layers, func(f cfFields) bson.RawValue { return f.Transcribed }).StringValueOK(); ok {
		rec.TranscribedSource = s
	}
	rec.SelectedAlternative = rawSelection(pick(layers, func(f cfFields) bson.RawValue { return f.Selection }))
	rec.GenerationLogs = rawMap(pick(layers, func(f cfFields) bson.RawValue { return f.Logs }))
	if s, ok := pick(layers, func(f cfFields) bson.RawValue { return f.Source }).StringValueOK(); ok {
		rec.Source = model.AlternativeSource(s)
	}
	if v, ok := rawInt(d.Revision); ok {
		rec.Revision = v
	}
	rec.UpdatedAt = rawTime(d.UpdatedAt)
	return rec
}

func rawInt(v bson.RawValue) (int64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return int64(v.Int32()), true
	case bsontype.Int64:
		return v.Int64(), true
	case bsontype.Double:
		f := v.Double()
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func rawStrings(v bson.RawValue) []string {
	arr, ok := v.ArrayOK()
	if !ok {
		return nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil
	}
	out := make([]string, len(values))
	for i, e := range values {
		out[i], _ = e.StringValueOK()
	}
	return out
}

// rawRatings keeps array positions and replaces anything that is not an
// integral number with an out-of-range marker.
func rawRatings(v bson.RawValue) []int {
	arr, ok := v.ArrayOK()
	if !ok {
		return nil
	}
	values, err := arr.Values()
	if err != nil {
		return nil
	}
	out := make([]int, len(values))
	for i, e := range values {
		n, ok := rawInt(e)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			out[i] = malformedRatingCell
			continue
		}
		out[i] = int(n)
	}
	return out
}

func rawTime(v bson.RawValue) time.Time {
	switch v.Type {
	case bsontype.DateTime:
		return v.Time().UTC()
	case bsontype.Timestamp:
		sec, _ := v.Timestamp()
		return time.Unix(int64(sec), 0).UTC()
	case bsontype.String:
		if t, err := time.Parse(time.RFC3339Nano, v.StringValue()); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func rawSelection(v bson.RawValue) *model.SelectedAlternative {
	doc, ok := v.DocumentOK()
	if !ok {
		return nil
	}
	idx, ok := rawInt(doc.Lookup("index"))
	if !ok {
		return nil
	}
	sel := &model.SelectedAlternative{Index: int(idx)}
	sel.Text, _ = doc.Lookup("text").StringValueOK()
	sel.SelectedAt = rawTime(doc.Lookup("selectedAt"))
	if r, ok := rawInt(doc.Lookup("feasibilityRating")); ok {
		n := int(r)
		sel.FeasibilityRating = &n
	}
	return sel
}

func rawMap(v bson.RawValue) map[string]interface{} {
	if v.Type != bsontype.EmbeddedDocument {
		return nil
	}
	var m map[string]interface{}
	if err := v.Unmarshal(&m); err != nil {
		return nil
	}
	return m
}

// canonicalSet builds the $set document for a full create-or-overwrite write
// in the flattened shape.
func canonicalSet(key model.RecordKey, rec *model.CounterfactualRecord, now time.Time) bson.M {
	set := bson.M{
		fieldUserID:        key.UserID,
		fieldSessionID:     key.SessionID,
		fieldRecordingID:   key.RecordingID,
		fieldTexts:         nonNilStrings(rec.GeneratedTexts),
		fieldQuestionIndex: rec.QuestionIndex,
		fieldGeneratedAt:   rec.GeneratedAt,
		fieldRatings:       nonNilInts(rec.Ratings),
		fieldUpdatedAt:     now,
		fieldSelection:     selectionValue(rec.SelectedAlternative),
	}
	// Explicit nulls so legacy blocks cannot fill in fields this generation left empty
	set[fieldTranscribed] = nil
	if rec.TranscribedSource != "" {
		set[fieldTranscribed] = rec.TranscribedSource
	}
	set[fieldLogs] = nil
	if rec.GenerationLogs != nil {
		set[fieldLogs] = rec.GenerationLogs
	}
	set[fieldSource] = nil
	if rec.Source != "" {
		set[fieldSource] = string(rec.Source)
	}
	return set
}

// patchSet builds the $set document for a field-level update
func patchSet(patch model.RecordPatch, now time.Time) bson.M {
	set := bson.M{fieldUpdatedAt: now}
	if patch.Ratings != nil {
		set[fieldRatings] = patch.Ratings
	}
	if patch.ClearSelection {
		set[fieldSelection] = nil
	} else if patch.Selection != nil {
		set[fieldSelection] = selectionValue(patch.Selection)
	}
	return set
}

func selectionValue(sel *model.SelectedAlternative) interface{} {
	if sel == nil {
		return nil
	}
	return sel
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
