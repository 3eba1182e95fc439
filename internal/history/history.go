package history

import (
	"fmt"
	"sync"

	"elysium-server/internal/domain"
)

// Store хранит упорядоченную историю ходов одной сессии.
// История append-only: ходы не изменяются и не удаляются до конца сессии.
// Доступ защищен мьютексом, чтение отдает копию.
type Store struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

// NewStore создает пустую историю.
func NewStore() *Store {
	return &Store{}
}

// Append добавляет завершенный ход в конец истории.
// Индекс хода обязан совпадать со следующим порядковым номером — защита
// от дублирующих и внеочередных записей.
func (s *Store) Append(turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Index != len(s.turns) {
		return fmt.Errorf("%w: append index %d, expected %d", domain.ErrInvalidState, turn.Index, len(s.turns))
	}
	s.turns = append(s.turns, turn)
	return nil
}

// Snapshot возвращает копию истории на момент вызова.
// Копия не зависит от последующих Append.
func (s *Store) Snapshot() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]domain.Turn, len(s.turns))
	copy(snapshot, s.turns)
	return snapshot
}

// Len возвращает текущее количество ходов.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// NextIndex возвращает индекс для следующего хода.
func (s *Store) NextIndex() int {
	return s.Len()
}

// Release освобождает данные иллюстраций всех ходов.
// Вызывается при завершении сессии; история после этого не используется.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.turns {
		s.turns[i].Image = nil
	}
	s.turns = nil
}
