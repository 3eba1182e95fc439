package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"elysium-server/internal/config"
	"elysium-server/internal/domain"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// ollamaGenerator реализует TextGenerator через нативный Ollama API.
type ollamaGenerator struct {
	client         *api.Client
	model          string
	temperature    float64
	maxTokens      int
	timeout        time.Duration
	maxAttempts    int
	baseRetryDelay time.Duration
	logger         zerolog.Logger
}

func newOllamaGenerator(cfg config.AIConfig, logger zerolog.Logger) (*ollamaGenerator, error) {
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}

	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	return &ollamaGenerator{
		client:         api.NewClient(parsedURL, httpClient),
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		baseRetryDelay: cfg.BaseRetryDelay,
		logger:         logger.With().Str("component", "OllamaTextGenerator").Logger(),
	}, nil
}

// Generate запрашивает продолжение истории у Ollama и парсит ответ.
func (g *ollamaGenerator) Generate(ctx context.Context, prompt string) (StoryReply, error) {
	var reply StoryReply

	err := doWithRetry(ctx, g.logger, g.maxAttempts, g.baseRetryDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		req := &api.ChatRequest{
			Model: g.model,
			Messages: []api.Message{
				{Role: "system", Content: prompt},
			},
			Stream: func(b bool) *bool { return &b }(false),
			Options: map[string]interface{}{
				"temperature": g.temperature,
				"num_predict": g.maxTokens,
			},
		}

		startTime := time.Now()
		g.logger.Debug().Str("model", g.model).Int("prompt_bytes", len(prompt)).Msg("Отправка запроса к Ollama")

		var resp api.ChatResponse
		err := g.client.Chat(callCtx, req, func(r api.ChatResponse) error {
			resp = r // Сохраняем последний (полный) ответ
			return nil
		})
		duration := time.Since(startTime)

		if err != nil {
			generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "error"}).Inc()
			classified := classifyOllamaError(err)
			g.logger.Warn().Err(err).Dur("duration", duration).Msg("Ошибка Ollama API")
			return classified
		}

		if resp.Message.Content == "" {
			generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "error"}).Inc()
			return fmt.Errorf("%w: получен пустой ответ", domain.ErrMalformedResponse)
		}

		generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "success"}).Inc()
		generatorRequestDuration.With(prometheus.Labels{"generator": "text"}).Observe(duration.Seconds())
		if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
			textPromptTokens.With(prometheus.Labels{"model": g.model}).Observe(float64(resp.PromptEvalCount))
			textCompletionTokens.With(prometheus.Labels{"model": g.model}).Observe(float64(resp.EvalCount))
		}

		parsed, parseErr := ParseStoryReply(resp.Message.Content)
		if parseErr != nil {
			g.logger.Warn().Err(parseErr).Msg("Ответ Ollama не соответствует формату")
			return parseErr
		}

		reply = parsed
		return nil
	})

	return reply, err
}

// classifyOllamaError приводит ошибку клиента Ollama к таксономии domain.
func classifyOllamaError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= http.StatusInternalServerError || statusErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
