package domain

import "fmt"

// StageError помечает ошибку именем этапа пайплайна, на котором она произошла.
// Оркестратор возвращает ее только когда ход не состоялся вовсе
// (отказ текстового этапа); частичные отказы доставляются через TurnOutcome.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError оборачивает ошибку этапа.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
