package service

import (
	"cfstudy/internal/cache"
	"cfstudy/internal/config"
	"cfstudy/internal/model"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// fallbackAlternatives are shown when generation fails and the caller opted
// into degraded mode. Records built from them carry SourceFallback.
var fallbackAlternatives = []string{
	"I could have paused for a moment before reacting.",
	"I could have asked someone I trust for support.",
	"I could have broken the task into a smaller first step.",
}

// defaultFlightTimeout bounds a shared generation when no generator timeout is configured
const defaultFlightTimeout = 45 * time.Second

// flightStoreBudget is added to the generator timeout to cover the store write
const flightStoreBudget = 10 * time.Second

// FallbackAlternatives returns a copy of the placeholder alternatives
func FallbackAlternatives() []string {
	return append([]string(nil), fallbackAlternatives...)
}

// CounterfactualService generates alternatives and stores them
type CounterfactualService struct {
	ratings     *RatingService
	generator   Generator
	healthCache cache.HealthCache
	limiter     *rate.Limiter
	group       singleflight.Group
	timeout     time.Duration
	broadcaster Broadcaster
}

// NewCounterfactualService creates a new counterfactual service
func NewCounterfactualService(ratings *RatingService, generator Generator, healthCache cache.HealthCache, cfg config.GeneratorConfig) *CounterfactualService {
	return &CounterfactualService{
		ratings:     ratings,
		generator:   generator,
		healthCache: healthCache,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1)),
		timeout:     flightTimeout(cfg.Timeout),
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *CounterfactualService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Generate requests alternatives for key and stores them with all ratings reset.
// Concurrent identical requests for the same key share one upstream call. The
// shared call outlives any single caller; a caller whose ctx ends stops
// waiting without cancelling it for the others.
func (s *CounterfactualService) Generate(ctx context.Context, key model.RecordKey, req model.GenerateRequest) (*model.CounterfactualRecord, error) {
	text := transcriptText(req)
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	ch := s.group.DoChan(flightKey(key, req, text), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.generate(fctx, key, req, text)
	})

	select {
	case <-ctx.Done():
		generationTotal.WithLabelValues("abandoned").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
	case res := <-ch:
		if res.Shared {
			generationTotal.WithLabelValues("shared").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.CounterfactualRecord).Clone(), nil
	}
}

func flightTimeout(generatorTimeout time.Duration) time.Duration {
	if generatorTimeout <= 0 {
		return defaultFlightTimeout
	}
	return generatorTimeout + flightStoreBudget
}

// flightKey identifies a generation by record key and request content, so
// only identical requests share a result
func flightKey(key model.RecordKey, req model.GenerateRequest, text string) string {
	body, _ := json.Marshal(struct {
		Text          string                     `json:"text"`
		QuestionIndex int                        `json:"questionIndex"`
		Questions     []model.QuestionTranscript `json:"questions"`
		WeeklyPlan    string                     `json:"weeklyPlan"`
		AllowFallback bool                       `json:"allowFallback"`
	}{text, req.QuestionIndex, req.Questions, req.WeeklyPlan, req.AllowFallback})
	sum := sha256.Sum256(body)
	return key.String() + "#" + hex.EncodeToString(sum[:8])
}

func (s *CounterfactualService) generate(ctx context.Context, key model.RecordKey, req model.GenerateRequest, text string) (*model.CounterfactualRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		generationTotal.WithLabelValues("rate_limited").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	start := time.Now()
	out, err := s.generator.Generate(ctx, GenerateInput{
		Text:          text,
		QuestionIndex: req.QuestionIndex,
		Questions:     req.Questions,
		WeeklyPlan:    req.WeeklyPlan,
	})
	generationDuration.Observe(time.Since(start).Seconds())

	gen := model.Generation{
		QuestionIndex:     req.QuestionIndex,
		TranscribedSource: text,
	}
	if err != nil {
		if !errors.Is(err, ErrGenerationFailed) {
			err = fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
		slog.Warn("generation failed", "user", key.UserID, "session", key.SessionID, "recording", key.RecordingID, "fallback", req.AllowFallback, "err", err)
		s.broadcaster.BroadcastToUser(key.UserID, MsgGenerationFailed, RecordUpdate{SessionID: key.SessionID, RecordingID: key.RecordingID})
		if !req.AllowFallback {
			generationTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		generationTotal.WithLabelValues("fallback").Inc()
		gen.Texts = FallbackAlternatives()
		gen.Source = model.SourceFallback
		gen.Logs = map[string]interface{}{"fallbackReason": err.Error()}
		return s.ratings.InitializeAfterGeneration(ctx, key, gen)
	}

	generationTotal.WithLabelValues("success").Inc()
	gen.Texts = out.Counterfactuals
	gen.Source = model.SourceGenerated
	gen.Logs = out.Logs
	return s.ratings.InitializeAfterGeneration(ctx, key, gen)
}

// Health returns the generation endpoint status, shared through the cache
func (s *CounterfactualService) Health(ctx context.Context) *cache.HealthStatus {
	cached, err := s.healthCache.Get(ctx)
	if err != nil {
		slog.Warn("health cache read failed", "err", err)
	}
	if cached != nil {
		return cached
	}

	status := &cache.HealthStatus{
		Healthy:   s.generator.Health(ctx),
		CheckedAt: time.Now().UTC(),
	}
	if err := s.healthCache.Set(ctx, status); err != nil {
		slog.Warn("health cache write failed", "err", err)
	}
	return status
}

// transcriptText is the explicit text, or the per-question transcripts joined
// in the order given
func transcriptText(req model.GenerateRequest) string {
	if t := strings.TrimSpace(req.Text); t != "" {
		return t
	}
	parts := make([]string, 0, len(req.Questions))
	for _, q := range req.Questions {
		if t := strings.TrimSpace(q.Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}
