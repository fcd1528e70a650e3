package service

import (
	"cfstudy/internal/model"
	"cfstudy/internal/repository"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepResult counts what one repair sweep did
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// RepairSweeper runs ValidateAndRepair over every stored record
type RepairSweeper struct {
	repo    repository.CounterfactualRepo
	ratings *RatingService
	timeout time.Duration
}

// NewRepairSweeper creates a new repair sweeper
func NewRepairSweeper(repo repository.CounterfactualRepo, ratings *RatingService) *RepairSweeper {
	return &RepairSweeper{
		repo:    repo,
		ratings: ratings,
		timeout: 30 * time.Minute,
	}
}

// Run sweeps all records once. A failure on one record is counted and the
// sweep continues; only a scan error or cancellation stops it.
func (s *RepairSweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := s.repo.Scan(ctx, func(key model.RecordKey) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Scanned++
		repaired, err := s.ratings.ValidateAndRepair(ctx, key)
		if err != nil {
			res.Failed++
			slog.Warn("sweep repair failed", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "err", err)
			return nil
		}
		if repaired {
			res.Repaired++
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("%w: scan: %w", ErrStoreUnavailable, err)
	}
	return res, nil
}

// Schedule starts a cron that runs the sweep on spec. The caller stops it.
func (s *RepairSweeper) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		res, err := s.Run(ctx)
		if err != nil {
			slog.Error("repair sweep failed", "err", err, "scanned", res.Scanned)
			return
		}
		slog.Info("repair sweep finished", "scanned", res.Scanned, "repaired", res.Repaired, "failed", res.Failed)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid repair schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
