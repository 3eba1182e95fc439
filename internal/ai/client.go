package ai

import (
	"context"
	"fmt"
	"strings"

	"elysium-server/internal/config"
	"elysium-server/internal/domain"

	"github.com/rs/zerolog"
)

// StoryReply — распарсенный ответ текстовой модели: сцена и ровно два выбора.
type StoryReply struct {
	Narrative string
	Choices   [domain.ChoiceCount]string
}

// TextGenerator — адаптер текстового генератора (сцена + выборы).
// Однократный повтор с задержкой при транзиентных сбоях выполняется внутри
// адаптера; наружу выходят только ошибки таксономии domain.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (StoryReply, error)
}

// ImageGenerator — адаптер генератора иллюстраций. Возвращает PNG байты.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// NewTextGenerator создает текстовый адаптер в зависимости от конфигурации.
func NewTextGenerator(cfg config.AIConfig, logger zerolog.Logger) (TextGenerator, error) {
	switch strings.ToLower(cfg.ClientType) {
	case "openai":
		logger.Info().
			Str("base_url", cfg.BaseURL).
			Str("model", cfg.Model).
			Dur("timeout", cfg.Timeout).
			Msg("Используется реализация текстового генератора: OpenAI")
		return newOpenAIGenerator(cfg, logger), nil
	case "ollama":
		logger.Info().
			Str("base_url", cfg.BaseURL).
			Str("model", cfg.Model).
			Dur("timeout", cfg.Timeout).
			Msg("Используется реализация текстового генератора: Ollama")
		return newOllamaGenerator(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.ClientType)
	}
}
