package service

import (
	"bytes"
	"cfstudy/internal/config"
	"cfstudy/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxGeneratorResponse caps how much of a generator response is read
const maxGeneratorResponse = 1 << 20

// GenerateInput is the payload sent to the generation endpoint
type GenerateInput struct {
	Text          string                     `json:"text"`
	QuestionIndex int                        `json:"questionIndex"`
	Questions     []model.QuestionTranscript `json:"questions,omitempty"`
	WeeklyPlan    string                     `json:"weeklyPlan,omitempty"`
}

// GenerateOutput is what the generation endpoint returns
type GenerateOutput struct {
	Counterfactuals []string               `json:"counterfactuals"`
	Logs            map[string]interface{} `json:"logs,omitempty"`
}

// Generator produces counterfactual alternatives for a transcript
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error)
	Health(ctx context.Context) bool
}

// GeneratorClient calls the counterfactual generation service over HTTP
type GeneratorClient struct {
	config config.GeneratorConfig
	client *http.Client
}

// NewGeneratorClient creates a new generator client
func NewGeneratorClient(cfg config.GeneratorConfig) *GeneratorClient {
	return &GeneratorClient{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Generate requests alternatives. It is all-or-nothing: any transport error,
// non-2xx status, malformed body, empty list or blank alternative is
// ErrGenerationFailed. Texts are returned exactly as the endpoint sent them.
func (c *GeneratorClient) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint("/generate"), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.HasAPIKey() {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratorResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, truncate(string(body), 200))
	}

	var out GenerateOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %w", ErrGenerationFailed, err)
	}

	if len(out.Counterfactuals) == 0 {
		return nil, fmt.Errorf("%w: response contained no alternatives", ErrGenerationFailed)
	}
	for i, t := range out.Counterfactuals {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: alternative %d is blank", ErrGenerationFailed, i)
		}
	}
	return &out, nil
}

// Health reports whether the generation endpoint answers its health check
func (c *GeneratorClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint("/health"), nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxGeneratorResponse))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
