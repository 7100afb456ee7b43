package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// memoryCounter is an in-memory BlockCounter with the same atomicity
// contract as the repository implementation.
type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: make(map[string]int)}
}

func (m *memoryCounter) IncrementBlockCount(_ context.Context, username string, threshold int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[username]++
	count := m.counts[username]
	return count, count >= threshold, nil
}

func (m *memoryCounter) IsBlocked(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[username] >= DefaultBlockThreshold, nil
}

func TestEscalator_WarnsThenBlocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	esc := NewEscalator(newMemoryCounter(), 3)

	out, err := esc.RecordOffense(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 1, out.BlockCount)
	assert.Equal(t, StateWarned, out.State)
	assert.False(t, out.JustBlocked)

	out, err = esc.RecordOffense(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 2, out.BlockCount)
	assert.Equal(t, StateWarned, out.State)

	out, err = esc.RecordOffense(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 3, out.BlockCount)
	assert.Equal(t, StateBlocked, out.State)
	assert.True(t, out.JustBlocked)

	// past the threshold the state stays Blocked but the transition flag
	// only fires once
	out, err = esc.RecordOffense(ctx, "bob")
	assert.NoError(t, err)
	assert.Equal(t, 4, out.BlockCount)
	assert.Equal(t, StateBlocked, out.State)
	assert.False(t, out.JustBlocked)
}

func TestEscalator_UsersAreIndependent(t *testing.T) {
	ctx := context.Background()
	esc := NewEscalator(newMemoryCounter(), 3)

	_, _ = esc.RecordOffense(ctx, "bob")
	_, _ = esc.RecordOffense(ctx, "bob")
	out, err := esc.RecordOffense(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, 1, out.BlockCount)
	assert.Equal(t, StateWarned, out.State)
}

func TestEscalator_ConcurrentOffensesLoseNoIncrements(t *testing.T) {
	ctx := context.Background()
	store := newMemoryCounter()
	esc := NewEscalator(store, 1000)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := esc.RecordOffense(ctx, "bob")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, _, err := store.IncrementBlockCount(ctx, "bob", 1000)
	assert.NoError(t, err)
	assert.Equal(t, n+1, count)
}

func TestEscalator_ThresholdFallback(t *testing.T) {
	esc := NewEscalator(newMemoryCounter(), 0)
	assert.Equal(t, DefaultBlockThreshold, esc.Threshold())
}
