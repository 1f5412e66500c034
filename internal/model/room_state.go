package model

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// RoomInventoryBundle — сериализованный инвентарь комнаты.
type RoomInventoryBundle struct {
	Items []ItemBundle `json:"items" cbor:"items"`
}

// RoomState — immutable снимок инвентаря комнаты (включая room devices).
type RoomState struct {
	assets *AssetManager
	items  []*Item

	validateOnce sync.Once
	validation   AppearanceValidationResult
}

// NewRoomState creates an empty room inventory.
func NewRoomState(assets *AssetManager) *RoomState {
	return &RoomState{assets: assets}
}

// Assets returns the catalog the state was built against.
func (s *RoomState) Assets() *AssetManager { return s.assets }

// Items returns the room inventory. The slice must not be modified.
func (s *RoomState) Items() []*Item { return s.items }

// ProduceWithItems возвращает комнату с новым инвентарём.
func (s *RoomState) ProduceWithItems(items []*Item) *RoomState {
	return &RoomState{assets: s.assets, items: items}
}

// Validate проверяет инвентарь. Результат кешируется на экземпляр.
func (s *RoomState) Validate() AppearanceValidationResult {
	s.validateOnce.Do(func() {
		s.validation = validateRoomItems(s.items)
	})
	return s.validation
}

// ExportToBundle сериализует инвентарь комнаты.
func (s *RoomState) ExportToBundle() RoomInventoryBundle {
	b := RoomInventoryBundle{Items: make([]ItemBundle, 0, len(s.items))}
	for _, item := range s.items {
		b.Items = append(b.Items, item.ExportToBundle())
	}
	return b
}

// LoadRoomStateFromBundle восстанавливает инвентарь комнаты, отбрасывая
// неизвестные и невалидные предметы с warning.
func LoadRoomStateFromBundle(assets *AssetManager, bundle *RoomInventoryBundle, logger *slog.Logger) *RoomState {
	if logger == nil {
		logger = slog.Default()
	}
	var loaded []*Item
	if bundle != nil {
		loaded = assets.loadItems(bundle.Items, logger)
	}

	items := make([]*Item, 0, len(loaded))
	for _, item := range loaded {
		next := append(slices.Clone(items), item)
		if r := validateRoomItems(next); !r.Success() {
			logger.Warn("dropping invalid room item on load", "item", item.id, "asset", item.asset.ID, "problem", r.String())
			continue
		}
		items = next
	}

	state := &RoomState{assets: assets, items: items}
	if r := state.Validate(); !r.Success() {
		panic(fmt.Sprintf("model: room inventory invalid after load: %s", r))
	}
	return state
}
