package shard

import (
	"sync"

	"github.com/udisondev/dressroom/internal/model"
)

// ClientManager — подключённые клиенты по персонажу.
// Thread-safe for concurrent access.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[model.CharacterID]*Client
}

// NewClientManager creates a new client manager.
func NewClientManager() *ClientManager {
	return &ClientManager{clients: make(map[model.CharacterID]*Client)}
}

// Register связывает клиента с его персонажем.
// Возвращает предыдущий клиент того же персонажа, если он был.
func (cm *ClientManager) Register(c *Client) *Client {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	old := cm.clients[c.character]
	cm.clients[c.character] = c
	if old == c {
		return nil
	}
	return old
}

// Unregister удаляет клиента, если он всё ещё зарегистрирован за своим персонажем.
func (cm *ClientManager) Unregister(c *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.clients[c.character] == c {
		delete(cm.clients, c.character)
	}
}

// Get returns the client of a character or nil.
func (cm *ClientManager) Get(id model.CharacterID) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[id]
}

// Count returns the number of registered clients.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// CloseAll закрывает все подключения.
func (cm *ClientManager) CloseAll() {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, c := range cm.clients {
		c.CloseAsync()
	}
}
