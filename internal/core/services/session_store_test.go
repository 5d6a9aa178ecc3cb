package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

func TestSessionStore_AcquireCreatesOnce(t *testing.T) {
	st := NewSessionStore()

	first, fresh := st.Acquire("conv-1", "You are helpful.")
	assert.True(t, fresh)

	second, fresh := st.Acquire("conv-1", "You are helpful.")
	assert.False(t, fresh)
	assert.Same(t, first, second)
}

func TestSessionStore_PersonaChangeReplacesSession(t *testing.T) {
	st := NewSessionStore()

	old, _ := st.Acquire("conv-1", "prompt A")
	old.Append(domain.RoleUser, "hello")

	replaced, fresh := st.Acquire("conv-1", "prompt B")
	assert.True(t, fresh)
	assert.NotSame(t, old, replaced)
	assert.Empty(t, replaced.History)
}

func TestSessionStore_DestroyForcesRebuild(t *testing.T) {
	st := NewSessionStore()

	st.Acquire("conv-1", "prompt")
	st.Destroy("conv-1")
	_, fresh := st.Acquire("conv-1", "prompt")
	assert.True(t, fresh)
}

func TestSessionStore_ConcurrentAcquireYieldsOneSession(t *testing.T) {
	st := NewSessionStore()

	var wg sync.WaitGroup
	sessions := make([]*ChatSession, 16)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], _ = st.Acquire("conv-1", "prompt")
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, st.Len())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}
