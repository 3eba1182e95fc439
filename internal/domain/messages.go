package domain

// Типы сообщений WebSocket протокола.
const (
	WSMessageTypeStart  = "start"  // Начало сессии: персонаж и сеттинг игрока
	WSMessageTypeChoice = "choice" // Очередной выбор игрока
	WSMessageTypeTurn   = "turn"   // Исходящий завершенный ход
	WSMessageTypeError  = "error"  // Исходящая ошибка (ход не состоялся)
)

// DefaultCharacterIdea используется, когда клиент прислал start без описания.
const DefaultCharacterIdea = "a brave adventurer in a mysterious land"

// ClientMessage — входящее сообщение от клиента.
// Для type=start заполняются Character/Setting, для type=choice — Text.
type ClientMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Character string `json:"character,omitempty"`
	Setting   string `json:"setting,omitempty"`
}

// TurnMessage — исходящее сообщение с результатом хода.
// Image — base64 PNG; пустая строка при отказе этапа image.
type TurnMessage struct {
	Type         string   `json:"type"`
	Narrative    string   `json:"narrative"`
	Choices      []string `json:"choices"`
	Image        string   `json:"image,omitempty"`
	FailedStages []string `json:"failed_stages"`
}

// ErrorMessage — исходящее сообщение об ошибке хода.
type ErrorMessage struct {
	Type   string `json:"type"`
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}
