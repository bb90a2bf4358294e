package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/shared/config"
)

// HTTPProvider calls an OpenAI-compatible chat completions endpoint.
// A circuit breaker sheds load when the upstream is persistently failing.
type HTTPProvider struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*ProviderResult]
	baseURL string
	apiKey  string
	model   string
	logger  *zap.Logger
}

// NewHTTPProvider creates a provider client from configuration.
func NewHTTPProvider(cfg *config.ProviderConfig, logger *zap.Logger) *HTTPProvider {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout == 0 {
		breakerTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "provider",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Billing rejections are not upstream outages.
			return err == nil || errors.Is(err, ErrProviderPaymentRequired)
		},
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &HTTPProvider{
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*ProviderResult](settings),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger,
	}
}

// Generate performs one generation against the upstream provider.
func (p *HTTPProvider) Generate(ctx context.Context, req *ProviderRequest) (*ProviderResult, error) {
	result, err := p.breaker.Execute(func() (*ProviderResult, error) {
		return p.generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Shedding load while the upstream recovers.
			return nil, fmt.Errorf("%w: circuit open", ErrProviderRateLimited)
		}
		return nil, err
	}
	return result, nil
}

func (p *HTTPProvider) generate(ctx context.Context, req *ProviderRequest) (*ProviderResult, error) {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req.ToolType, req.Language)},
			{"role": "user", "content": string(req.Input)},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnknown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapStatus(resp)
	}

	var chatResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnknown, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrProviderUnknown)
	}

	return &ProviderResult{
		Content:   chatResp.Choices[0].Message.Content,
		Model:     chatResp.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func (p *HTTPProvider) mapStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	p.logger.Warn("provider request failed",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return ErrProviderRateLimited
	case http.StatusPaymentRequired:
		return ErrProviderPaymentRequired
	default:
		return fmt.Errorf("%w: status %d", ErrProviderUnknown, resp.StatusCode)
	}
}

func systemPrompt(tool ToolType, language string) string {
	if language == "" {
		language = "English"
	}
	switch tool {
	case ToolBlogPost:
		return fmt.Sprintf("You are a content writer. Write a blog post in %s based on the user's brief.", language)
	case ToolTagline:
		return fmt.Sprintf("You are a copywriter. Produce a short tagline in %s for the user's product.", language)
	case ToolProductCopy:
		return fmt.Sprintf("You are a copywriter. Write product marketing copy in %s from the user's description.", language)
	case ToolSocialPost:
		return fmt.Sprintf("You are a social media writer. Write a social post in %s from the user's brief.", language)
	default:
		return fmt.Sprintf("Generate content in %s based on the user's input.", language)
	}
}
