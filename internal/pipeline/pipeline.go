package pipeline

import (
	"context"
	"fmt"

	"elysium-server/internal/ai"
	"elysium-server/internal/domain"
	"elysium-server/internal/history"
	"elysium-server/internal/prompt"

	"github.com/rs/zerolog"
)

// State — состояние PipelineRun.
type State string

const (
	StateComposing            State = "composing"
	StateAwaitingText         State = "awaiting_text"
	StateAwaitingVisualPrompt State = "awaiting_visual_prompt"
	StateAwaitingImage        State = "awaiting_image"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Run — транзиентное состояние обработки одного хода. Хранит выход каждого
// завершенного этапа, чтобы частичный результат не терялся при отказе
// последующих этапов.
type Run struct {
	State        State
	choice       string
	snapshot     []domain.Turn
	nextIndex    int
	prompt       string
	narrative    string
	choices      [domain.ChoiceCount]string
	visualPrompt string
	image        []byte
	failedStages []domain.Stage
}

// Orchestrator прогоняет PipelineRun по этапам: текст → визуальный промпт →
// изображение. Этапы строго последовательны; переходы — чистые функции от
// выхода предыдущего этапа.
type Orchestrator struct {
	composer *prompt.Composer
	text     ai.TextGenerator
	image    ai.ImageGenerator
	logger   zerolog.Logger
}

// NewOrchestrator создает оркестратор ходов.
func NewOrchestrator(composer *prompt.Composer, text ai.TextGenerator, image ai.ImageGenerator, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		composer: composer,
		text:     text,
		image:    image,
		logger:   logger.With().Str("component", "TurnOrchestrator").Logger(),
	}
}

// Execute выполняет один ход против истории сессии.
//
// Ошибка возвращается только когда ход не состоялся вовсе (отказ текстового
// этапа) — история при этом не меняется. Отказ этапа изображения дает
// частичный результат: ход с пустой иллюстрацией добавляется в историю, имя
// этапа попадает в FailedStages результата.
func (o *Orchestrator) Execute(ctx context.Context, store *history.Store, choice string) (domain.TurnOutcome, error) {
	run := &Run{
		State:     StateComposing,
		choice:    choice,
		snapshot:  store.Snapshot(),
		nextIndex: store.NextIndex(),
	}

	for {
		switch run.State {
		case StateComposing:
			o.stepCompose(run)
		case StateAwaitingText:
			if err := o.stepText(ctx, run); err != nil {
				turnsTotal.WithLabelValues("failed").Inc()
				stageFailures.WithLabelValues(string(domain.StageText)).Inc()
				return domain.TurnOutcome{}, err
			}
		case StateAwaitingVisualPrompt:
			o.stepVisualPrompt(run)
		case StateAwaitingImage:
			o.stepImage(ctx, run)
		case StateCompleted, StateFailed:
			outcome, err := o.finish(run, store)
			if err != nil {
				return domain.TurnOutcome{}, err
			}
			return outcome, nil
		default:
			return domain.TurnOutcome{}, fmt.Errorf("%w: неизвестное состояние пайплайна %q", domain.ErrInvalidState, run.State)
		}
	}
}

// stepCompose строит повествовательный промпт из снимка истории и выбора.
func (o *Orchestrator) stepCompose(run *Run) {
	run.prompt = o.composer.ComposeNarrativePrompt(run.snapshot, run.choice)
	run.State = StateAwaitingText
}

// stepText вызывает текстовый генератор. Отказ здесь терминален для всего
// хода: частичного результата еще нет.
func (o *Orchestrator) stepText(ctx context.Context, run *Run) error {
	reply, err := o.text.Generate(ctx, run.prompt)
	if err != nil {
		o.logger.Warn().Err(err).Int("turn_index", run.nextIndex).Msg("Текстовый этап завершился ошибкой, ход отменен")
		run.State = StateFailed
		run.failedStages = append(run.failedStages, domain.StageText)
		return domain.NewStageError(domain.StageText, err)
	}

	run.narrative = reply.Narrative
	run.choices = reply.Choices
	run.State = StateAwaitingVisualPrompt
	return nil
}

// stepVisualPrompt — чистая композиция, внешних вызовов нет. Пустой
// результат возможен только на вырожденном повествовании; тогда этап
// изображения пропускается.
func (o *Orchestrator) stepVisualPrompt(run *Run) {
	run.visualPrompt = o.composer.ComposeVisualPrompt(run.narrative)
	if run.visualPrompt == "" {
		o.logger.Warn().Int("turn_index", run.nextIndex).Msg("Не удалось составить визуальный промпт, этап изображения пропущен")
		run.failedStages = append(run.failedStages, domain.StageCompose)
		stageFailures.WithLabelValues(string(domain.StageCompose)).Inc()
		run.State = StateFailed
		return
	}
	run.State = StateAwaitingImage
}

// stepImage вызывает генератор иллюстраций. Отказ не отменяет ход:
// повествование уже получено и будет доставлено без картинки.
func (o *Orchestrator) stepImage(ctx context.Context, run *Run) {
	image, err := o.image.Generate(ctx, run.visualPrompt)
	if err != nil {
		o.logger.Warn().Err(err).Int("turn_index", run.nextIndex).Msg("Этап изображения завершился ошибкой, ход доставляется без иллюстрации")
		run.failedStages = append(run.failedStages, domain.StageImage)
		stageFailures.WithLabelValues(string(domain.StageImage)).Inc()
		run.State = StateFailed
		return
	}
	run.image = image
	run.State = StateCompleted
}

// finish собирает ход, добавляет его в историю и формирует результат.
// Сюда попадают только прогоны с валидным повествованием.
func (o *Orchestrator) finish(run *Run, store *history.Store) (domain.TurnOutcome, error) {
	turn := domain.Turn{
		Index:        run.nextIndex,
		Choice:       run.choice,
		Narrative:    run.narrative,
		Choices:      run.choices,
		VisualPrompt: run.visualPrompt,
		Image:        run.image,
	}
	if err := store.Append(turn); err != nil {
		return domain.TurnOutcome{}, err
	}

	if len(run.failedStages) == 0 {
		turnsTotal.WithLabelValues("success").Inc()
	} else {
		turnsTotal.WithLabelValues("partial").Inc()
	}
	o.logger.Info().
		Int("turn_index", turn.Index).
		Int("narrative_bytes", len(turn.Narrative)).
		Int("image_bytes", len(turn.Image)).
		Interface("failed_stages", run.failedStages).
		Msg("Ход завершен и добавлен в историю")

	return domain.TurnOutcome{
		Narrative:    run.narrative,
		Choices:      run.choices,
		Image:        run.image,
		FailedStages: run.failedStages,
	}, nil
}
