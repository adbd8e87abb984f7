package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/randyrahmani/CareLogG8/pkg/config"
	"github.com/randyrahmani/CareLogG8/pkg/logger"
	"github.com/randyrahmani/CareLogG8/pkg/types"
)

// Generator is the external text-generation collaborator. Implementations
// are fallible and possibly slow; callers must treat an error or empty
// result as "no feedback" and leave the underlying note untouched.
type Generator interface {
	GenerateFeedback(ctx context.Context, notes string, mood, pain, appetite int) (string, error)
}

// HTTPGenerator calls a hosted generative-text API. Each call is bounded by
// the configured timeout and retried with linear backoff on transport
// errors; the data contract is unchanged by retries.
type HTTPGenerator struct {
	cfg    *config.FeedbackConfig
	client *http.Client
	logger *logger.Logger
}

// NewHTTPGenerator creates a generator from the feedback configuration.
func NewHTTPGenerator(cfg *config.FeedbackConfig, log *logger.Logger) *HTTPGenerator {
	return &HTTPGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger: log,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateFeedback posts the prompt to the configured endpoint and returns
// the generated paragraph.
func (g *HTTPGenerator) GenerateFeedback(ctx context.Context, notes string, mood, pain, appetite int) (string, error) {
	prompt := buildPrompt(notes, mood, pain, appetite)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to encode feedback request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.cfg.Endpoint, g.cfg.Model, g.cfg.APIKey)

	var lastErr error
	attempts := g.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(g.cfg.RetryBackoffMS*attempt) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", types.NewExternalError(types.ErrCodeExternalError, "feedback generation cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		text, err := g.generateOnce(ctx, url, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		g.logger.Warn("Feedback generation attempt failed", "attempt", attempt+1, "error", err)
	}

	return "", types.NewExternalError(types.ErrCodeExternalError, "feedback generation failed", lastErr)
}

func (g *HTTPGenerator) generateOnce(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation endpoint returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation response holds no candidates")
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("generation response holds empty text")
	}
	return text, nil
}

func buildPrompt(notes string, mood, pain, appetite int) string {
	return fmt.Sprintf(`You are an AI in a hospital that gives feedback to patients based on their notes.
The patient reported the following:
- Mood: %d/10
- Pain: %d/10
- Appetite: %d/10

Patient Notes:
%s

Provide useful feedbacks and things that the patients can do to make themselves feel better. Be kind and encouraging.
Do not assume things. Provide one paragraph of around 200 words. Only print the paragraph and nothing else.

Feedback:
`, mood, pain, appetite, notes)
}
