package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"elysium-server/internal/domain"
	"elysium-server/internal/pipeline"
	"elysium-server/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Проверяем origin запроса (в продакшене здесь должна быть проверка)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler — шлюз между WebSocket соединением и оркестратором ходов.
// Одно соединение = одна сессия; идентификатор выдается при подключении.
type WSHandler struct {
	sessions     *session.Manager
	orchestrator *pipeline.Orchestrator
	logger       zerolog.Logger
}

// NewWSHandler создает обработчик WebSocket.
func NewWSHandler(sessions *session.Manager, orchestrator *pipeline.Orchestrator, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		sessions:     sessions,
		orchestrator: orchestrator,
		logger:       logger.With().Str("component", "WSHandler").Logger(),
	}
}

// Handle обрабатывает входящий HTTP запрос для WebSocket.
func (h *WSHandler) Handle(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		// Не пишем ошибку в ответ, upgrader уже это сделал
		return nil
	}

	sessionID := uuid.New()
	h.sessions.GetOrCreate(sessionID)
	client := newClient(sessionID, conn)

	logger := h.logger.With().Str("session_id", sessionID.String()).Logger()
	logger.Info().Msg("WebSocket connection established")

	go client.writePump(logger)
	h.readPump(client, logger)
	return nil
}

// readPump откачивает входящие сообщения соединения и запускает ходы.
// Завершение readPump означает разрыв: сессия уничтожается, активный
// PipelineRun прерывается.
func (h *WSHandler) readPump(client *Client, logger zerolog.Logger) {
	defer func() {
		client.shutdown()
		h.sessions.EndSession(client.SessionID)
		_ = client.Conn.Close()
		logger.Info().Msg("Connection closed, session ended")
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn().Err(err).Msg("Failed to decode client message (ignored)")
			continue
		}

		switch msg.Type {
		case domain.WSMessageTypeStart:
			go h.runTurn(client, startingIdea(msg), logger)
		case domain.WSMessageTypeChoice:
			go h.runTurn(client, strings.TrimSpace(msg.Text), logger)
		default:
			logger.Warn().Str("type", msg.Type).Msg("Unknown message type (ignored)")
		}
	}
}

// runTurn выполняет один ход и доставляет результат клиенту.
// Параллельные ходы одной сессии отклоняются менеджером (SessionBusy).
func (h *WSHandler) runTurn(client *Client, choice string, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := h.sessions.BeginTurn(client.SessionID, cancel)
	if err != nil {
		logger.Warn().Err(err).Msg("Turn rejected")
		h.push(client, buildErrorMessage(err), logger)
		return
	}

	outcome, err := h.orchestrator.Execute(ctx, sess.History, choice)
	h.sessions.FinishTurn(client.SessionID, err == nil)

	if err != nil {
		// Разрыв соединения во время хода: результат некому доставлять
		if ctx.Err() != nil {
			logger.Info().Msg("Turn abandoned after disconnect")
			return
		}
		h.push(client, buildErrorMessage(err), logger)
		return
	}
	h.push(client, buildTurnMessage(outcome), logger)
}

// push сериализует и ставит сообщение в очередь отправки клиенту.
func (h *WSHandler) push(client *Client, payload interface{}, logger zerolog.Logger) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal outbound message")
		return
	}
	if !client.enqueue(data) {
		logger.Warn().Msg("Outbound message dropped (connection gone or queue full)")
	}
}

// startingIdea собирает начальную идею персонажа из сообщения start.
func startingIdea(msg domain.ClientMessage) string {
	character := strings.TrimSpace(msg.Character)
	setting := strings.TrimSpace(msg.Setting)
	switch {
	case character != "" && setting != "":
		return character + " in " + setting
	case character != "":
		return character
	case setting != "":
		return domain.DefaultCharacterIdea + " in " + setting
	default:
		return domain.DefaultCharacterIdea
	}
}

// buildTurnMessage переводит результат пайплайна в исходящее сообщение.
func buildTurnMessage(outcome domain.TurnOutcome) domain.TurnMessage {
	failed := make([]string, 0, len(outcome.FailedStages))
	for _, stage := range outcome.FailedStages {
		failed = append(failed, string(stage))
	}

	var image string
	if len(outcome.Image) > 0 {
		image = base64.StdEncoding.EncodeToString(outcome.Image)
	}

	return domain.TurnMessage{
		Type:         domain.WSMessageTypeTurn,
		Narrative:    outcome.Narrative,
		Choices:      outcome.Choices[:],
		Image:        image,
		FailedStages: failed,
	}
}

// buildErrorMessage переводит ошибку хода в исходящее сообщение.
func buildErrorMessage(err error) domain.ErrorMessage {
	stage := "session"
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
	}
	return domain.ErrorMessage{
		Type:   domain.WSMessageTypeError,
		Stage:  stage,
		Detail: err.Error(),
	}
}
