package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"elysium-server/internal/domain"
	"elysium-server/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_GetOrCreateIsIdempotent(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()

	first := m.GetOrCreate(id)
	second := m.GetOrCreate(id)

	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Count())
	status, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, domain.SessionIdle, status)
}

func TestManager_BeginTurnUnknownSession(t *testing.T) {
	m := session.NewManager(zerolog.Nop())

	_, err := m.BeginTurn(uuid.New(), func() {})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_BeginTurnRejectsSecondCaller(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()
	m.GetOrCreate(id)

	_, err := m.BeginTurn(id, func() {})
	require.NoError(t, err)
	status, _ := m.Status(id)
	assert.Equal(t, domain.SessionGenerating, status)

	_, err = m.BeginTurn(id, func() {})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	// После завершения хода сессия снова доступна
	m.FinishTurn(id, true)
	status, _ = m.Status(id)
	assert.Equal(t, domain.SessionIdle, status)
	_, err = m.BeginTurn(id, func() {})
	assert.NoError(t, err)
}

func TestManager_FinishTurnFailureSetsStatus(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()
	m.GetOrCreate(id)

	_, err := m.BeginTurn(id, func() {})
	require.NoError(t, err)
	m.FinishTurn(id, false)

	status, ok := m.Status(id)
	require.True(t, ok)
	assert.Equal(t, domain.SessionFailed, status)

	_, ok = m.Status(uuid.New())
	assert.False(t, ok)
}

func TestManager_AtMostOneActiveTurnUnderConcurrency(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()
	m.GetOrCreate(id)

	const callers = 32
	var granted atomic.Int32
	var busy atomic.Int32
	var wg sync.WaitGroup
	wg.Add(callers)

	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := m.BeginTurn(id, func() {})
			if err == nil {
				granted.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrSessionBusy)
			busy.Add(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load(), "exactly one caller may win the turn")
	assert.Equal(t, int32(callers-1), busy.Load())
}

func TestManager_StatusReadableDuringTurnChurn(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()
	m.GetOrCreate(id)

	// Читатели статуса не должны гоняться с мутациями BeginTurn/FinishTurn
	// (проверяется детектором гонок)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if _, err := m.BeginTurn(id, func() {}); err == nil {
				m.FinishTurn(id, i%2 == 0)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			status, ok := m.Status(id)
			assert.True(t, ok)
			assert.Contains(t, []domain.SessionStatus{
				domain.SessionIdle, domain.SessionGenerating, domain.SessionFailed,
			}, status)
		}
	}()
	wg.Wait()
}

func TestManager_EndSessionCancelsActiveTurn(t *testing.T) {
	m := session.NewManager(zerolog.Nop())
	id := uuid.New()
	sess := m.GetOrCreate(id)

	turn := domain.Turn{Index: 0, Narrative: "Scene.", Image: []byte{1, 2, 3}}
	require.NoError(t, sess.History.Append(turn))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := m.BeginTurn(id, cancel)
	require.NoError(t, err)

	m.EndSession(id)

	// Активный ход прерван, ресурсы освобождены, сессия удалена
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, 0, sess.History.Len())
	assert.Equal(t, 0, m.Count())

	_, err = m.BeginTurn(id, func() {})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Повторное завершение безопасно
	m.EndSession(id)
	m.FinishTurn(id, true)
}
