package prompt

import (
	"strings"

	"elysium-server/internal/domain"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// Инструкции рассказчику. Формат выбора фиксирован: парсер текстового
// адаптера ожидает ровно две строки 'A) ...' и 'B) ...' в конце ответа.
const (
	openingFraming = "You are a text adventure game's Dungeon Master. " +
		"The user's character and setting is: '%IDEA%'. " +
		"Describe the opening scene vividly. " +
		"Your response MUST end with two clear choices for the user, " +
		"formatted exactly as 'A) [Choice text]' and 'B) [Choice text]' on separate lines."

	continuationFraming = "You are a text adventure game's Dungeon Master. " +
		"Continue the story based on the user's last choice. " +
		"Describe the outcome and the new scene. Keep the story consistent. " +
		"Your response MUST end with two new, clear choices, " +
		"formatted exactly as 'A) [Choice text]' and 'B) [Choice text]' on separate lines."

	// Максимальная длина визуального описания сцены (в словах) без учета суффикса стиля.
	maxVisualWords = 20
)

// Composer собирает промпты для обоих генераторов. Чистые функции от
// снимка истории и нового выбора; состояния не имеет, кроме конфигурации.
type Composer struct {
	tokenBudget int
	styleSuffix string
	encoder     *tiktoken.Tiktoken // nil, если энкодинг для модели недоступен
	logger      zerolog.Logger
}

// NewComposer создает композер промптов.
// tokenBudget ограничивает суммарный размер повествовательного промпта;
// при недоступном энкодинге модели используется символьная эвристика.
func NewComposer(model string, tokenBudget int, styleSuffix string, logger zerolog.Logger) *Composer {
	encoder, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn().Err(err).Str("model", model).Msg("Tokenizer for model unavailable, falling back to character heuristic")
		encoder = nil
	}
	return &Composer{
		tokenBudget: tokenBudget,
		styleSuffix: styleSuffix,
		encoder:     encoder,
		logger:      logger.With().Str("component", "PromptComposer").Logger(),
	}
}

// ComposeNarrativePrompt строит промпт продолжения истории: инструкция,
// история в исходном порядке и новый выбор игрока. Когда история не
// помещается в бюджет, старейшие ходы отбрасываются целиком; последний
// ход сохраняется всегда.
func (c *Composer) ComposeNarrativePrompt(history []domain.Turn, choice string) string {
	if len(history) == 0 {
		idea := strings.TrimSpace(choice)
		if idea == "" {
			idea = domain.DefaultCharacterIdea
		}
		return strings.Replace(openingFraming, "%IDEA%", idea, 1)
	}

	var tail strings.Builder
	tail.WriteString("\n\nHere is the story so far:\n")
	included := c.fitHistory(history, choice)
	for _, turn := range included {
		if turn.Choice != "" {
			tail.WriteString("User chose: ")
			tail.WriteString(turn.Choice)
			tail.WriteString("\n")
		}
		tail.WriteString("AI Scene: ")
		tail.WriteString(turn.Narrative)
		tail.WriteString("\n")
	}
	tail.WriteString("\nThe user now chose: ")
	tail.WriteString(choice)

	return continuationFraming + tail.String()
}

// ComposeVisualPrompt выводит короткое визуальное описание сцены из текста
// повествования и добавляет суффикс стиля. Внешних вызовов нет.
func (c *Composer) ComposeVisualPrompt(narrative string) string {
	cleaned := strings.NewReplacer("\n", " ", "\r", " ", "*", "", "#", "").Replace(narrative)
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return ""
	}
	if len(words) > maxVisualWords {
		words = words[:maxVisualWords]
	}
	return strings.Join(words, " ") + c.styleSuffix
}

// fitHistory возвращает подпоследовательность истории (суффикс), которая
// вместе с инструкцией и новым выбором укладывается в бюджет токенов.
// Ходы отбрасываются только целиком, начиная с самых старых.
func (c *Composer) fitHistory(history []domain.Turn, choice string) []domain.Turn {
	fixed := c.countTokens(continuationFraming) + c.countTokens(choice)
	budget := c.tokenBudget - fixed

	// Последний ход включается безусловно ради связности
	start := len(history) - 1
	budget -= c.turnTokens(history[start])

	for start > 0 {
		cost := c.turnTokens(history[start-1])
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}

	if start > 0 {
		c.logger.Debug().
			Int("dropped_turns", start).
			Int("kept_turns", len(history)-start).
			Msg("History truncated to fit token budget")
	}
	return history[start:]
}

func (c *Composer) turnTokens(turn domain.Turn) int {
	return c.countTokens(turn.Narrative) + c.countTokens(turn.Choice)
}

// countTokens считает токены строки; без энкодинга — грубая оценка 1 токен ≈ 4 символа.
func (c *Composer) countTokens(text string) int {
	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}
