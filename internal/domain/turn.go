package domain

// ChoiceCount — фиксированное число вариантов выбора, которые модель обязана вернуть.
const ChoiceCount = 2

// Stage — один из этапов генерации внутри PipelineRun.
type Stage string

const (
	StageText    Stage = "text"
	StageCompose Stage = "compose"
	StageImage   Stage = "image"
)

// Turn представляет один завершенный ход повествования.
// После добавления в историю ход неизменяем.
type Turn struct {
	Index        int                 // Порядковый номер хода в истории (с нуля)
	Choice       string              // Выбор игрока, породивший этот ход (пустой для вступительного)
	Narrative    string              // Сгенерированный текст сцены
	Choices      [ChoiceCount]string // Варианты следующего выбора
	VisualPrompt string              // Промпт, по которому генерировалась иллюстрация
	Image        []byte              // PNG иллюстрации; nil, если этап image завершился ошибкой
}

// TurnOutcome — терминальный результат PipelineRun, доставляемый клиенту.
// Narrative/Choices заполнены всегда, когда текстовый этап успел отработать;
// Image может отсутствовать при частичном отказе.
type TurnOutcome struct {
	Narrative    string
	Choices      [ChoiceCount]string
	Image        []byte
	FailedStages []Stage
}

// SessionStatus — статус пайплайна сессии.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionGenerating SessionStatus = "generating"
	SessionFailed     SessionStatus = "failed"
)
