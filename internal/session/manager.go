package session

import (
	"context"
	"fmt"
	"sync"

	"elysium-server/internal/domain"
	"elysium-server/internal/history"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var activeSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "elysium_active_sessions",
		Help: "Number of currently active narrative sessions.",
	},
)

// Session — состояние повествования одного соединения. Владелец — Manager;
// History мутируется только активным PipelineRun.
type Session struct {
	ID      uuid.UUID
	History *history.Store

	status     domain.SessionStatus
	activeTurn bool
	cancelTurn context.CancelFunc // Отмена активного PipelineRun; nil вне хода
}

// Manager владеет жизненным циклом всех активных сессий: создание при
// подключении, выдача хода под инвариант "не более одного активного
// PipelineRun на сессию", разрушение при отключении.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	logger   zerolog.Logger
}

// NewManager создает менеджер сессий.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		logger:   logger.With().Str("component", "SessionManager").Logger(),
	}
}

// GetOrCreate возвращает сессию соединения, создавая пустую при первом обращении.
func (m *Manager) GetOrCreate(id uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		return sess
	}

	sess := &Session{
		ID:      id,
		History: history.NewStore(),
		status:  domain.SessionIdle,
	}
	m.sessions[id] = sess
	activeSessions.Inc()
	m.logger.Info().Str("session_id", id.String()).Msg("Сессия создана")
	return sess
}

// BeginTurn помечает начало обработки хода. Возвращает ErrSessionNotFound,
// если соединение уже закрыто, и ErrSessionBusy, если ход уже выполняется —
// второй вызов отклоняется сразу, в очередь не ставится.
// cancel сохраняется для прерывания хода при разрыве соединения.
func (m *Manager) BeginTurn(id uuid.UUID, cancel context.CancelFunc) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if sess.activeTurn {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionBusy, id)
	}

	sess.activeTurn = true
	sess.cancelTurn = cancel
	sess.status = domain.SessionGenerating
	return sess, nil
}

// FinishTurn снимает отметку активного хода и обновляет статус сессии.
// Вызов после EndSession безопасен и ничего не делает.
func (m *Manager) FinishTurn(id uuid.UUID, succeeded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.activeTurn = false
	sess.cancelTurn = nil
	if succeeded {
		sess.status = domain.SessionIdle
	} else {
		sess.status = domain.SessionFailed
	}
}

// EndSession прерывает активный ход (если есть), освобождает данные
// иллюстраций и удаляет сессию. Вызывается при разрыве соединения.
func (m *Manager) EndSession(id uuid.UUID) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	if sess.cancelTurn != nil {
		// Прерываем ожидание; сами апстрим-вызовы могут довыполниться,
		// их результат будет отброшен
		sess.cancelTurn()
	}
	sess.History.Release()
	activeSessions.Dec()
	m.logger.Info().Str("session_id", id.String()).Msg("Сессия завершена")
}

// Status возвращает текущий статус пайплайна сессии. Статус мутируется
// под мьютексом менеджера, поэтому и читается только через него.
func (m *Manager) Status(id uuid.UUID) (domain.SessionStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return "", false
	}
	return sess.status, true
}

// Count возвращает число активных сессий.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
