package ai

import (
	"fmt"
	"strings"

	"elysium-server/internal/domain"
)

// Маркеры вариантов выбора в ответе модели. Инструкция требует строки
// 'A) ...' и 'B) ...' в конце ответа, но модели иногда добавляют хвост
// после выборов — поэтому берем последнее вхождение каждого маркера.
const (
	choiceMarkerA = "A)"
	choiceMarkerB = "B)"
)

// ParseStoryReply парсит текстовый ответ модели в StoryReply.
// Нарушение формата (нет повествования, меньше двух выборов, пустой выбор)
// считается MalformedResponse.
func ParseStoryReply(responseText string) (StoryReply, error) {
	var reply StoryReply
	if strings.TrimSpace(responseText) == "" {
		return reply, fmt.Errorf("%w: пустой ответ", domain.ErrMalformedResponse)
	}

	lines := strings.Split(responseText, "\n")
	aIdx, bIdx := -1, -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, choiceMarkerA) {
			aIdx = i
		} else if strings.HasPrefix(trimmed, choiceMarkerB) {
			bIdx = i
		}
	}

	if aIdx == -1 || bIdx == -1 {
		return reply, fmt.Errorf("%w: найдено меньше двух вариантов выбора", domain.ErrMalformedResponse)
	}

	choiceA := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[aIdx]), choiceMarkerA))
	choiceB := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[bIdx]), choiceMarkerB))
	if choiceA == "" || choiceB == "" {
		return reply, fmt.Errorf("%w: пустой текст варианта выбора", domain.ErrMalformedResponse)
	}

	cut := aIdx
	if bIdx < cut {
		cut = bIdx
	}
	narrative := strings.TrimSpace(strings.Join(lines[:cut], "\n"))
	if narrative == "" {
		return reply, fmt.Errorf("%w: ответ не содержит повествования", domain.ErrMalformedResponse)
	}

	reply.Narrative = narrative
	reply.Choices = [domain.ChoiceCount]string{choiceA, choiceB}
	return reply, nil
}
