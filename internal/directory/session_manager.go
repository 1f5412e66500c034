package directory

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionManager хранит bearer-сессии directory.
// Thread-safe через sync.Map: сессии читаются на каждом запросе и редко пишутся.
type SessionManager struct {
	sessions sync.Map // map[string]*SessionInfo
}

// SessionInfo — владелец сессии.
// Экспортируется для тестирования (можно манипулировать CreatedAt).
type SessionInfo struct {
	AccountID int64
	Login     string
	Roles     []string
	CreatedAt time.Time
}

// NewSessionManager создаёт новый SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Create открывает сессию и возвращает её токен.
func (sm *SessionManager) Create(accountID int64, login string, roles []string) string {
	token := newToken()
	sm.sessions.Store(token, &SessionInfo{
		AccountID: accountID,
		Login:     login,
		Roles:     roles,
		CreatedAt: time.Now(),
	})
	return token
}

// Lookup возвращает сессию, если она существует и моложе ttl.
func (sm *SessionManager) Lookup(token string, ttl time.Duration) (*SessionInfo, bool) {
	val, ok := sm.sessions.Load(token)
	if !ok {
		return nil, false
	}
	info := val.(*SessionInfo)
	if ttl > 0 && time.Since(info.CreatedAt) > ttl {
		sm.sessions.Delete(token)
		return nil, false
	}
	return info, true
}

// Remove закрывает сессию.
func (sm *SessionManager) Remove(token string) {
	sm.sessions.Delete(token)
}

// CleanExpired удаляет сессии старше ttl.
func (sm *SessionManager) CleanExpired(ttl time.Duration) {
	now := time.Now()
	sm.sessions.Range(func(key, value any) bool {
		if now.Sub(value.(*SessionInfo).CreatedAt) > ttl {
			sm.sessions.Delete(key)
		}
		return true
	})
}

// Count возвращает количество активных сессий.
func (sm *SessionManager) Count() int {
	count := 0
	sm.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// StoreInfo сохраняет готовый SessionInfo (для тестов с манипуляцией времени).
func (sm *SessionManager) StoreInfo(token string, info *SessionInfo) {
	sm.sessions.Store(token, info)
}

// newToken — 32 случайных байта в hex. Используется для сессий и билетов входа.
func newToken() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
