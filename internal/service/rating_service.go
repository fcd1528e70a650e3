package service

import (
	"cfstudy/internal/model"
	"cfstudy/internal/rating"
	"cfstudy/internal/repository"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RatingService applies rating and selection changes to counterfactual records.
//
// Every mutation is read, reconcile, apply, write. The write is conditional on
// the revision that was read; on conflict the whole sequence is re-run against
// the fresh record, so concurrent changes to different indices are not lost.
type RatingService struct {
	repo        repository.CounterfactualRepo
	broadcaster Broadcaster
	maxRetries  int
	now         func() time.Time
}

// NewRatingService creates a new rating service
func NewRatingService(repo repository.CounterfactualRepo, maxRetries int) *RatingService {
	return &RatingService{
		repo:        repo,
		broadcaster: noopBroadcaster{},
		maxRetries:  maxRetries,
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *RatingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// mutation computes the patch for a record that exists. An empty patch means
// nothing needs writing.
type mutation func(rec *model.CounterfactualRecord) (model.RecordPatch, error)

type mutateOpts struct {
	op                  string
	ifRevision          int64 // repository.AnyRevision when the caller holds no revision
	requireAlternatives bool
}

// Load returns the record with its ratings reconciled. A record that breaks
// the rating invariants is repaired in the store on the way; a failed repair is
// logged and the in-memory reconciled view is returned instead.
// A missing record is (nil, nil).
func (s *RatingService) Load(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	rec, err := s.read(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	if !needsRepair(rec) {
		return view(rec), nil
	}

	repaired, _, err := s.repair(ctx, key, "load")
	if err != nil {
		slog.Warn("repair on load failed", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "err", err)
		return view(rec), nil
	}
	if repaired == nil {
		return view(rec), nil
	}
	return repaired, nil
}

// SetRating stores a Likert rating for one alternative
func (s *RatingService) SetRating(ctx context.Context, key model.RecordKey, index, value int, ifRevision int64) (*model.CounterfactualRecord, error) {
	if !rating.Valid(value) {
		mutationsTotal.WithLabelValues("set_rating", "invalid").Inc()
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRating, value)
	}
	if index < 0 {
		mutationsTotal.WithLabelValues("set_rating", "invalid").Inc()
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIndex, index)
	}

	rec, _, err := s.mutate(ctx, key, mutateOpts{op: "set_rating", ifRevision: ifRevision, requireAlternatives: true},
		func(rec *model.CounterfactualRecord) (model.RecordPatch, error) {
			if index >= len(rec.GeneratedTexts) {
				return model.RecordPatch{}, fmt.Errorf("%w: index %d, %d alternatives", ErrIndexOutOfBounds, index, len(rec.GeneratedTexts))
			}
			ratings := rating.Reconcile(rec.GeneratedTexts, rec.Ratings)
			ratings[index] = value
			return withSelectionMirror(model.RecordPatch{Ratings: ratings}, rec, ratings), nil
		})
	if err != nil {
		return nil, err
	}
	slog.Info("rating stored", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "index", index, "rating", value)
	return rec, nil
}

// InitializeAfterGeneration stores a fresh set of alternatives and resets every
// rating to unrated. Prior ratings are discarded even when the new set has the
// same length. A selection whose index no longer exists is cleared.
func (s *RatingService) InitializeAfterGeneration(ctx context.Context, key model.RecordKey, gen model.Generation) (*model.CounterfactualRecord, error) {
	if len(gen.Texts) == 0 {
		return nil, fmt.Errorf("%w: no alternatives returned", ErrGenerationFailed)
	}
	if gen.GeneratedAt.IsZero() {
		gen.GeneratedAt = s.now().UTC()
	}
	if gen.Source == "" {
		gen.Source = model.SourceGenerated
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		existing, err := s.read(ctx, key)
		if err != nil {
			mutationsTotal.WithLabelValues("initialize", "store_error").Inc()
			return nil, err
		}

		ratings := rating.Blank(len(gen.Texts))
		next := &model.CounterfactualRecord{
			GeneratedTexts:    append([]string(nil), gen.Texts...),
			QuestionIndex:     gen.QuestionIndex,
			GeneratedAt:       gen.GeneratedAt,
			TranscribedSource: gen.TranscribedSource,
			Ratings:           ratings,
			GenerationLogs:    gen.Logs,
			Source:            gen.Source,
		}
		expected := repository.AnyRevision
		if existing != nil {
			expected = existing.Revision
			next.SelectedAlternative, _ = mirrorSelection(existing.SelectedAlternative, next.GeneratedTexts, ratings)
		}

		stored, err := s.repo.Set(ctx, key, next, expected)
		if err == nil {
			mutationsTotal.WithLabelValues("initialize", "ok").Inc()
			s.publish(key, stored)
			slog.Info("alternatives initialized", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "count", len(gen.Texts), "source", gen.Source)
			return view(stored), nil
		}
		lastErr = s.writeError("initialize", err)
		if !errors.Is(lastErr, ErrRevisionConflict) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// ValidateAndRepair rewrites the ratings array only when it violates the length
// or value invariant, or when the selection points past the alternatives. It
// reports whether a write happened. A missing record is not an error.
func (s *RatingService) ValidateAndRepair(ctx context.Context, key model.RecordKey) (bool, error) {
	_, wrote, err := s.repair(ctx, key, "repair")
	return wrote, err
}

func (s *RatingService) repair(ctx context.Context, key model.RecordKey, source string) (*model.CounterfactualRecord, bool, error) {
	rec, wrote, err := s.mutate(ctx, key, mutateOpts{op: "repair", ifRevision: repository.AnyRevision},
		func(rec *model.CounterfactualRecord) (model.RecordPatch, error) {
			if !needsRepair(rec) {
				return model.RecordPatch{}, nil
			}
			ratings := rating.Reconcile(rec.GeneratedTexts, rec.Ratings)
			return withSelectionMirror(model.RecordPatch{Ratings: ratings}, rec, ratings), nil
		})
	if err != nil {
		return nil, false, err
	}
	if wrote {
		repairsTotal.WithLabelValues(source).Inc()
		slog.Info("ratings repaired", "source", source, "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID)
	}
	return rec, wrote, nil
}

// Select marks one alternative as the participant's preferred reframing. The
// text is copied so it survives later regeneration.
func (s *RatingService) Select(ctx context.Context, key model.RecordKey, index int) (*model.CounterfactualRecord, error) {
	if index < 0 {
		mutationsTotal.WithLabelValues("select", "invalid").Inc()
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIndex, index)
	}
	rec, _, err := s.mutate(ctx, key, mutateOpts{op: "select", ifRevision: repository.AnyRevision, requireAlternatives: true},
		func(rec *model.CounterfactualRecord) (model.RecordPatch, error) {
			if index >= len(rec.GeneratedTexts) {
				return model.RecordPatch{}, fmt.Errorf("%w: index %d, %d alternatives", ErrIndexOutOfBounds, index, len(rec.GeneratedTexts))
			}
			ratings := rating.Reconcile(rec.GeneratedTexts, rec.Ratings)
			sel := &model.SelectedAlternative{
				Index:      index,
				Text:       rec.GeneratedTexts[index],
				SelectedAt: s.now().UTC(),
			}
			sel.FeasibilityRating = derivedRating(ratings, index)
			return model.RecordPatch{Ratings: ratings, Selection: sel}, nil
		})
	return rec, err
}

// Deselect clears the selection. Alternatives and ratings are left alone.
func (s *RatingService) Deselect(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	rec, _, err := s.mutate(ctx, key, mutateOpts{op: "deselect", ifRevision: repository.AnyRevision},
		func(rec *model.CounterfactualRecord) (model.RecordPatch, error) {
			if rec.SelectedAlternative == nil {
				return model.RecordPatch{}, nil
			}
			return model.RecordPatch{ClearSelection: true}, nil
		})
	return rec, err
}

// mutate runs the read-apply-write loop. It returns the record as stored (or
// as read, when the mutation produced an empty patch) and whether it wrote.
func (s *RatingService) mutate(ctx context.Context, key model.RecordKey, opts mutateOpts, fn mutation) (*model.CounterfactualRecord, bool, error) {
	retries := s.maxRetries
	if opts.ifRevision != repository.AnyRevision {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		rec, err := s.read(ctx, key)
		if err != nil {
			mutationsTotal.WithLabelValues(opts.op, "store_error").Inc()
			return nil, false, err
		}
		if rec == nil || (opts.requireAlternatives && !rec.HasAlternatives()) {
			if opts.requireAlternatives {
				mutationsTotal.WithLabelValues(opts.op, "no_alternatives").Inc()
				return nil, false, ErrNoGeneratedAlternatives
			}
			return nil, false, nil
		}
		if opts.ifRevision != repository.AnyRevision && rec.Revision != opts.ifRevision {
			conflictsTotal.WithLabelValues(opts.op).Inc()
			return nil, false, fmt.Errorf("%w: have revision %d, stored %d", ErrRevisionConflict, opts.ifRevision, rec.Revision)
		}

		patch, err := fn(rec)
		if err != nil {
			mutationsTotal.WithLabelValues(opts.op, "rejected").Inc()
			return nil, false, err
		}
		if patch.Empty() {
			return view(rec), false, nil
		}

		stored, err := s.repo.Update(ctx, key, patch, rec.Revision)
		if err == nil {
			mutationsTotal.WithLabelValues(opts.op, "ok").Inc()
			s.publish(key, stored)
			return view(stored), true, nil
		}
		lastErr = s.writeError(opts.op, err)
		if !errors.Is(lastErr, ErrRevisionConflict) {
			return nil, false, lastErr
		}
		slog.Debug("revision conflict, retrying", "op", opts.op, "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "attempt", attempt)
	}
	return nil, false, lastErr
}

func (s *RatingService) read(ctx context.Context, key model.RecordKey) (*model.CounterfactualRecord, error) {
	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStoreUnavailable, key, err)
	}
	return rec, nil
}

func (s *RatingService) writeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrRevisionConflict):
		conflictsTotal.WithLabelValues(op).Inc()
		return ErrRevisionConflict
	case errors.Is(err, repository.ErrNotFound):
		mutationsTotal.WithLabelValues(op, "no_alternatives").Inc()
		return ErrNoGeneratedAlternatives
	default:
		mutationsTotal.WithLabelValues(op, "store_error").Inc()
		slog.Error("record write failed", "op", op, "err", err)
		return fmt.Errorf("%w: write: %w", ErrStoreUnavailable, err)
	}
}

func (s *RatingService) publish(key model.RecordKey, rec *model.CounterfactualRecord) {
	if rec == nil {
		return
	}
	s.broadcaster.BroadcastToUser(key.UserID, MsgCounterfactualUpdated, RecordUpdate{
		SessionID:   key.SessionID,
		RecordingID: key.RecordingID,
		Revision:    rec.Revision,
	})
}

// needsRepair reports whether the stored ratings or the selection mirror differ
// from what reconciliation would produce
func needsRepair(rec *model.CounterfactualRecord) bool {
	ratings := rating.Reconcile(rec.GeneratedTexts, rec.Ratings)
	if !rating.Equal(ratings, rec.Ratings) || (rec.Ratings == nil && len(ratings) > 0) {
		return true
	}
	sel, cleared := mirrorSelection(rec.SelectedAlternative, rec.GeneratedTexts, ratings)
	if cleared {
		return true
	}
	return sel != nil && !sameRating(sel.FeasibilityRating, rec.SelectedAlternative.FeasibilityRating)
}

// view returns a copy of rec as clients should see it
func view(rec *model.CounterfactualRecord) *model.CounterfactualRecord {
	out := rec.Clone()
	out.Ratings = rating.Reconcile(out.GeneratedTexts, out.Ratings)
	out.SelectedAlternative, _ = mirrorSelection(out.SelectedAlternative, out.GeneratedTexts, out.Ratings)
	return out
}

// withSelectionMirror adds the selection to patch when its mirrored rating or
// validity changes with the new ratings
func withSelectionMirror(patch model.RecordPatch, rec *model.CounterfactualRecord, ratings []int) model.RecordPatch {
	sel, cleared := mirrorSelection(rec.SelectedAlternative, rec.GeneratedTexts, ratings)
	switch {
	case cleared:
		patch.ClearSelection = true
	case sel != nil && !sameRating(sel.FeasibilityRating, rec.SelectedAlternative.FeasibilityRating):
		patch.Selection = sel
	}
	return patch
}

// mirrorSelection copies sel with its feasibility rating taken from ratings.
// It reports cleared=true when sel points past the alternatives.
func mirrorSelection(sel *model.SelectedAlternative, texts []string, ratings []int) (*model.SelectedAlternative, bool) {
	if sel == nil {
		return nil, false
	}
	if sel.Index < 0 || sel.Index >= len(texts) {
		return nil, true
	}
	out := *sel
	out.FeasibilityRating = derivedRating(ratings, sel.Index)
	return &out, false
}

func derivedRating(ratings []int, index int) *int {
	r := rating.At(ratings, index)
	if !rating.Valid(r) {
		return nil
	}
	return &r
}

func sameRating(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
