package service

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/model"
	"cfstudy/internal/repository"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	ConditionFromCache = "cache"
	ConditionFromStore = "store"
)

// ConditionService serves a participant's study condition.
//
// Reads answer from the cache when possible and then check the store in the
// background, correcting the cache if the condition changed. The cached value
// is for display only; nothing authorizes against it.
type ConditionService struct {
	repo           repository.ParticipantRepo
	cache          cache.ConditionCache
	refreshTimeout time.Duration
	group          singleflight.Group
	wg             sync.WaitGroup
}

// NewConditionService creates a new condition service
func NewConditionService(repo repository.ParticipantRepo, conditions cache.ConditionCache) *ConditionService {
	return &ConditionService{
		repo:           repo,
		cache:          conditions,
		refreshTimeout: 5 * time.Second,
	}
}

// Get returns the condition for userID, cached when available
func (s *ConditionService) Get(ctx context.Context, userID string) (*model.ConditionView, error) {
	condition, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		slog.Warn("condition cache read failed", "user", userID, "err", err)
	}
	if ok {
		s.refreshAsync(userID)
		return &model.ConditionView{UserID: userID, Condition: condition, Source: ConditionFromCache}, nil
	}
	return s.Refresh(ctx, userID)
}

// Refresh reads the condition from the store and overwrites the cache.
// Called on every authentication event.
func (s *ConditionService) Refresh(ctx context.Context, userID string) (*model.ConditionView, error) {
	v, err, _ := s.group.Do(userID, func() (interface{}, error) {
		participant, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: participant %s: %w", ErrStoreUnavailable, userID, err)
		}

		view := &model.ConditionView{UserID: userID, Source: ConditionFromStore}
		if participant == nil {
			if err := s.cache.Delete(ctx, userID); err != nil {
				slog.Warn("condition cache delete failed", "user", userID, "err", err)
			}
			return view, nil
		}

		view.Condition = participant.Condition
		if err := s.cache.Set(ctx, userID, participant.Condition); err != nil {
			slog.Warn("condition cache write failed", "user", userID, "err", err)
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	out := *v.(*model.ConditionView)
	return &out, nil
}

func (s *ConditionService) refreshAsync(userID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()
		if _, err := s.Refresh(ctx, userID); err != nil {
			slog.Warn("background condition refresh failed", "user", userID, "err", err)
		}
	}()
}

// Wait blocks until background refreshes have finished
func (s *ConditionService) Wait() {
	s.wg.Wait()
}
