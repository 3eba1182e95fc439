package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"elysium-server/internal/config"
	"elysium-server/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	openaigo "github.com/sashabaranov/go-openai"
)

// openAIGenerator реализует TextGenerator через go-openai (совместимо с
// OpenAI-подобными API: OpenRouter, DeepSeek и т.п.).
type openAIGenerator struct {
	client         *openaigo.Client
	model          string
	temperature    float32
	maxTokens      int
	timeout        time.Duration
	maxAttempts    int
	baseRetryDelay time.Duration
	logger         zerolog.Logger
}

func newOpenAIGenerator(cfg config.AIConfig, logger zerolog.Logger) *openAIGenerator {
	clientConfig := openaigo.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &openAIGenerator{
		client:         openaigo.NewClientWithConfig(clientConfig),
		model:          cfg.Model,
		temperature:    float32(cfg.Temperature),
		maxTokens:      cfg.MaxTokens,
		timeout:        cfg.Timeout,
		maxAttempts:    cfg.MaxAttempts,
		baseRetryDelay: cfg.BaseRetryDelay,
		logger:         logger.With().Str("component", "OpenAITextGenerator").Logger(),
	}
}

// Generate запрашивает продолжение истории и парсит сцену с выборами.
func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (StoryReply, error) {
	var reply StoryReply

	err := doWithRetry(ctx, g.logger, g.maxAttempts, g.baseRetryDelay, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		startTime := time.Now()
		g.logger.Debug().Str("model", g.model).Int("prompt_bytes", len(prompt)).Msg("Отправка запроса к текстовому API")

		resp, err := g.client.CreateChatCompletion(callCtx, openaigo.ChatCompletionRequest{
			Model: g.model,
			Messages: []openaigo.ChatCompletionMessage{
				{
					Role:    openaigo.ChatMessageRoleSystem,
					Content: prompt,
				},
			},
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		})
		duration := time.Since(startTime)

		if err != nil {
			generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "error"}).Inc()
			classified := classifyOpenAIError(err)
			g.logger.Warn().Err(err).Dur("duration", duration).Msg("Ошибка текстового API")
			return classified
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "error"}).Inc()
			return fmt.Errorf("%w: получен пустой ответ", domain.ErrMalformedResponse)
		}

		generatorRequestsTotal.With(prometheus.Labels{"generator": "text", "status": "success"}).Inc()
		generatorRequestDuration.With(prometheus.Labels{"generator": "text"}).Observe(duration.Seconds())
		if resp.Usage.TotalTokens > 0 {
			textPromptTokens.With(prometheus.Labels{"model": g.model}).Observe(float64(resp.Usage.PromptTokens))
			textCompletionTokens.With(prometheus.Labels{"model": g.model}).Observe(float64(resp.Usage.CompletionTokens))
		}

		parsed, parseErr := ParseStoryReply(resp.Choices[0].Message.Content)
		if parseErr != nil {
			g.logger.Warn().Err(parseErr).Int("response_bytes", len(resp.Choices[0].Message.Content)).Msg("Ответ текстового API не соответствует формату")
			return parseErr
		}

		g.logger.Debug().Dur("duration", duration).Int("narrative_bytes", len(parsed.Narrative)).Msg("Ответ текстового API получен и распарсен")
		reply = parsed
		return nil
	})

	return reply, err
}

// classifyOpenAIError приводит ошибку клиента к таксономии domain.
// Сетевые сбои, таймауты и 5xx/429 — транзиентные; явные отказы API — терминальные.
func classifyOpenAIError(err error) error {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= http.StatusInternalServerError || apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
	}
	// Ошибки транспорта и превышение таймаута неотличимы от недоступности
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}
