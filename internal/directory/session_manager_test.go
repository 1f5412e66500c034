package directory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_CreateAndLookup(t *testing.T) {
	sm := NewSessionManager()

	token := sm.Create(7, "alice", []string{"admin"})
	assert.Len(t, token, 64)

	info, ok := sm.Lookup(token, time.Hour)
	require.True(t, ok)
	assert.Equal(t, int64(7), info.AccountID)
	assert.Equal(t, "alice", info.Login)
	assert.Equal(t, []string{"admin"}, info.Roles)

	_, ok = sm.Lookup("nonexistent", time.Hour)
	assert.False(t, ok)

	assert.NotEqual(t, token, sm.Create(7, "alice", nil), "tokens are unique")
}

func TestSessionManager_LookupExpired(t *testing.T) {
	sm := NewSessionManager()

	// Сессия создана 2 часа назад
	sm.StoreInfo("old", &SessionInfo{AccountID: 1, CreatedAt: time.Now().Add(-2 * time.Hour)})

	_, ok := sm.Lookup("old", time.Hour)
	assert.False(t, ok)
	assert.Zero(t, sm.Count(), "expired session is dropped on lookup")
}

func TestSessionManager_CleanExpired(t *testing.T) {
	sm := NewSessionManager()
	now := time.Now()

	sm.StoreInfo("expired1", &SessionInfo{CreatedAt: now.Add(-10 * time.Minute)})
	sm.StoreInfo("expired2", &SessionInfo{CreatedAt: now.Add(-6 * time.Minute)})
	sm.StoreInfo("fresh", &SessionInfo{CreatedAt: now.Add(-2 * time.Minute)})
	sm.StoreInfo("future", &SessionInfo{CreatedAt: now.Add(time.Minute)})

	sm.CleanExpired(5 * time.Minute)

	assert.Equal(t, 2, sm.Count())
	_, ok := sm.Lookup("fresh", 0)
	assert.True(t, ok)
	_, ok = sm.Lookup("expired1", 0)
	assert.False(t, ok)
}

func TestSessionManager_Remove(t *testing.T) {
	sm := NewSessionManager()
	token := sm.Create(1, "alice", nil)

	sm.Remove(token)
	_, ok := sm.Lookup(token, time.Hour)
	assert.False(t, ok)

	// Удаление несуществующей сессии не паникует
	sm.Remove("nonexistent")
}

func TestSessionManager_Concurrent(t *testing.T) {
	sm := NewSessionManager()
	var wg sync.WaitGroup

	tokens := make([]string, 50)
	for i := range tokens {
		wg.Go(func() {
			tokens[i] = sm.Create(int64(i), "user", nil)
		})
	}
	wg.Wait()
	assert.Equal(t, 50, sm.Count())

	for _, token := range tokens {
		wg.Go(func() {
			_, ok := sm.Lookup(token, time.Hour)
			assert.True(t, ok)
			sm.Remove(token)
		})
	}
	wg.Wait()
	assert.Zero(t, sm.Count())
}
