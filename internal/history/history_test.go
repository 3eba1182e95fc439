package history_test

import (
	"fmt"
	"sync"
	"testing"

	"elysium-server/internal/domain"
	"elysium-server/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTurn(index int, choice string) domain.Turn {
	return domain.Turn{
		Index:     index,
		Choice:    choice,
		Narrative: fmt.Sprintf("Scene %d.", index),
		Choices:   [domain.ChoiceCount]string{"Go left", "Go right"},
	}
}

func TestStore_AppendAndSnapshotOrder(t *testing.T) {
	store := history.NewStore()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(makeTurn(i, fmt.Sprintf("choice-%d", i))))
	}

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 5)
	for i, turn := range snapshot {
		assert.Equal(t, i, turn.Index)
		assert.Equal(t, fmt.Sprintf("choice-%d", i), turn.Choice)
	}
}

func TestStore_AppendSequenceGuard(t *testing.T) {
	store := history.NewStore()
	require.NoError(t, store.Append(makeTurn(0, "")))

	t.Run("duplicate index", func(t *testing.T) {
		err := store.Append(makeTurn(0, "again"))
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("index gap", func(t *testing.T) {
		err := store.Append(makeTurn(2, "skipped"))
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	// История не должна была измениться
	assert.Equal(t, 1, store.Len())
}

func TestStore_SnapshotIsolation(t *testing.T) {
	store := history.NewStore()
	require.NoError(t, store.Append(makeTurn(0, "")))

	snapshot := store.Snapshot()
	require.NoError(t, store.Append(makeTurn(1, "next")))

	// Снимок отражает состояние на момент вызова
	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, store.Len())

	// Мутация снимка не трогает хранилище
	snapshot[0].Narrative = "mutated"
	assert.Equal(t, "Scene 0.", store.Snapshot()[0].Narrative)
}

func TestStore_ConcurrentSnapshotDuringAppend(t *testing.T) {
	store := history.NewStore()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = store.Append(makeTurn(i, "c"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			snapshot := store.Snapshot()
			// Снимок всегда последовательный, без дыр
			for j, turn := range snapshot {
				assert.Equal(t, j, turn.Index)
			}
		}
	}()

	wg.Wait()
	assert.Equal(t, 100, store.Len())
}

func TestStore_ReleaseDropsImageData(t *testing.T) {
	store := history.NewStore()
	turn := makeTurn(0, "")
	turn.Image = []byte{0x89, 0x50, 0x4e, 0x47}
	require.NoError(t, store.Append(turn))

	store.Release()
	assert.Equal(t, 0, store.Len())
}
