package model

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// GlobalStateBundle — сериализованный снимок space.
type GlobalStateBundle struct {
	Characters map[CharacterID]CharacterAppearanceBundle `json:"characters" cbor:"characters"`
	Room       RoomInventoryBundle                       `json:"room" cbor:"room"`
}

// GlobalState — immutable снимок всех персонажей и инвентаря комнаты одного space.
// Единственная мутация — замена указателя на новый GlobalState владельцем space.
type GlobalState struct {
	assets     *AssetManager
	characters map[CharacterID]*CharacterState
	room       *RoomState

	validateOnce sync.Once
	validation   AppearanceValidationResult
}

// NewGlobalState создаёт space без персонажей с комнатой room (nil — пустая комната).
// Персонажей в space ещё нет, поэтому все места room devices освобождаются.
func NewGlobalState(assets *AssetManager, room *RoomState) *GlobalState {
	if room == nil {
		room = NewRoomState(assets)
	}
	room = freeOccupants(room, func(string, *Item, CharacterID) bool { return true })
	return &GlobalState{assets: assets, characters: map[CharacterID]*CharacterState{}, room: room}
}

// Assets returns the catalog of the space.
func (g *GlobalState) Assets() *AssetManager { return g.assets }

// Character возвращает состояние персонажа или nil.
func (g *GlobalState) Character(id CharacterID) *CharacterState { return g.characters[id] }

// CharacterIDs returns ids of characters present in the space, sorted.
func (g *GlobalState) CharacterIDs() []CharacterID {
	return slices.Sorted(maps.Keys(g.characters))
}

// Room returns the room inventory state.
func (g *GlobalState) Room() *RoomState { return g.room }

func (g *GlobalState) with(characters map[CharacterID]*CharacterState, room *RoomState) *GlobalState {
	return &GlobalState{assets: g.assets, characters: characters, room: room}
}

// ProduceWithCharacter заменяет состояние одного персонажа.
func (g *GlobalState) ProduceWithCharacter(cs *CharacterState) *GlobalState {
	chars := maps.Clone(g.characters)
	chars[cs.id] = cs
	return g.with(chars, g.room)
}

// ProduceWithRoom заменяет инвентарь комнаты.
func (g *GlobalState) ProduceWithRoom(room *RoomState) *GlobalState {
	return g.with(g.characters, room)
}

// AddCharacter добавляет персонажа в space. Wearable parts, чьи room devices
// отсутствуют в комнате или заняты другим персонажем, снимаются, а места
// devices, ссылающиеся на персонажа без wearable part, освобождаются.
func (g *GlobalState) AddCharacter(cs *CharacterState, logger *slog.Logger) *GlobalState {
	if logger == nil {
		logger = slog.Default()
	}
	cs = g.stripDanglingParts(cs, logger)
	room := freeOccupants(g.room, func(slot string, device *Item, char CharacterID) bool {
		if char != cs.id {
			return false
		}
		return !wearsLinkedPart(cs, device.id, slot)
	})
	chars := maps.Clone(g.characters)
	chars[cs.id] = cs
	return g.with(chars, room)
}

// WithoutCharacter убирает персонажа из space и освобождает занятые им места.
func (g *GlobalState) WithoutCharacter(id CharacterID) *GlobalState {
	if _, ok := g.characters[id]; !ok {
		return g
	}
	chars := maps.Clone(g.characters)
	delete(chars, id)
	room := freeOccupants(g.room, func(_ string, _ *Item, char CharacterID) bool { return char == id })
	return g.with(chars, room)
}

func (g *GlobalState) stripDanglingParts(cs *CharacterState, logger *slog.Logger) *CharacterState {
	bundle := cs.ExportToBundle()
	kept := bundle.Items[:0:0]
	dropped := false
	for i, item := range cs.items {
		if link := item.deviceLink; link != nil {
			device := g.roomDevice(link.Device)
			if device == nil || device.deviceOccupants[link.Slot] != cs.id {
				logger.Warn("removing wearable part of missing device",
					"character", cs.id, "item", item.id, "device", link.Device, "slot", link.Slot)
				dropped = true
				continue
			}
		}
		kept = append(kept, bundle.Items[i])
	}
	if !dropped {
		return cs
	}
	bundle.Items = kept
	return LoadCharacterStateFromBundle(cs.assets, cs.id, &bundle, logger)
}

func (g *GlobalState) roomDevice(id ItemID) *Item {
	idx := indexOfItem(g.room.items, id)
	if idx < 0 {
		return nil
	}
	item := g.room.items[idx]
	if item.asset.RoomDevice == nil {
		return nil
	}
	return item
}

func wearsLinkedPart(cs *CharacterState, device ItemID, slot string) bool {
	return slices.ContainsFunc(cs.items, func(i *Item) bool {
		return i.deviceLink != nil && i.deviceLink.Device == device && i.deviceLink.Slot == slot
	})
}

// freeOccupants освобождает места room devices, для которых drop вернул true.
func freeOccupants(room *RoomState, drop func(slot string, device *Item, char CharacterID) bool) *RoomState {
	var items []*Item
	for i, item := range room.items {
		if item.asset.RoomDevice == nil {
			continue
		}
		for _, slot := range slices.Sorted(maps.Keys(item.deviceOccupants)) {
			current := item
			if items != nil {
				current = items[i]
			}
			if !drop(slot, current, current.deviceOccupants[slot]) {
				continue
			}
			if items == nil {
				items = slices.Clone(room.items)
			}
			items[i] = current.WithDeviceOccupant(slot, "")
		}
	}
	if items == nil {
		return room
	}
	return room.ProduceWithItems(items)
}

// Validate проверяет всех персонажей, комнату и согласованность связей
// room device ↔ wearable part. Результат кешируется на экземпляр.
func (g *GlobalState) Validate() AppearanceValidationResult {
	g.validateOnce.Do(func() {
		g.validation = g.validate()
	})
	return g.validation
}

func (g *GlobalState) validate() AppearanceValidationResult {
	for _, id := range g.CharacterIDs() {
		if r := g.characters[id].Validate(); !r.Success() {
			return r
		}
	}
	if r := g.room.Validate(); !r.Success() {
		return r
	}

	for _, device := range g.room.items {
		if device.asset.RoomDevice == nil {
			continue
		}
		for _, slot := range slices.Sorted(maps.Keys(device.deviceOccupants)) {
			char := device.deviceOccupants[slot]
			cs := g.characters[char]
			if cs == nil || !wearsLinkedPart(cs, device.id, slot) {
				return fail(ProblemDeviceLinkBroken, device.id, "slot %q occupied by %s", slot, char)
			}
			partAsset := device.asset.RoomDevice.Slots[slot]
			for _, item := range cs.items {
				if l := item.deviceLink; l != nil && l.Device == device.id && l.Slot == slot && item.asset.ID != partAsset {
					return fail(ProblemDeviceLinkBroken, item.id, "slot %q expects %s", slot, partAsset)
				}
			}
		}
	}

	for _, id := range g.CharacterIDs() {
		cs := g.characters[id]
		for _, item := range cs.items {
			link := item.deviceLink
			if link == nil {
				continue
			}
			device := g.roomDevice(link.Device)
			if device == nil || device.deviceOccupants[link.Slot] != id {
				return fail(ProblemDeviceLinkBroken, item.id, "device %s slot %q", link.Device, link.Slot)
			}
		}
	}
	return validationOK
}

// ExportToBundle сериализует весь space.
func (g *GlobalState) ExportToBundle() GlobalStateBundle {
	b := GlobalStateBundle{
		Characters: make(map[CharacterID]CharacterAppearanceBundle, len(g.characters)),
		Room:       g.room.ExportToBundle(),
	}
	for id, cs := range g.characters {
		b.Characters[id] = cs.ExportToBundle()
	}
	return b
}

// ReloadAssets пересобирает space под новый каталог: каждый персонаж и комната
// проходят через export/load, предметы с исчезнувшими ассетами отбрасываются.
func (g *GlobalState) ReloadAssets(assets *AssetManager, logger *slog.Logger) *GlobalState {
	if logger == nil {
		logger = slog.Default()
	}
	roomBundle := g.room.ExportToBundle()
	next := &GlobalState{
		assets:     assets,
		characters: map[CharacterID]*CharacterState{},
		room:       LoadRoomStateFromBundle(assets, &roomBundle, logger),
	}
	for _, id := range g.CharacterIDs() {
		bundle := g.characters[id].ExportToBundle()
		next = next.AddCharacter(LoadCharacterStateFromBundle(assets, id, &bundle, logger), logger)
	}
	if r := next.Validate(); !r.Success() {
		panic(fmt.Sprintf("model: space invalid after asset reload: %s", r))
	}
	return next
}

// StateChanges — что изменилось между двумя снимками.
type StateChanges struct {
	Characters []CharacterID // добавленные или изменённые
	Removed    []CharacterID
	Room       bool
}

// Empty reports whether nothing changed.
func (c StateChanges) Empty() bool {
	return len(c.Characters) == 0 && len(c.Removed) == 0 && !c.Room
}

// ChangesSince сравнивает снимки по идентичности указателей: неизменённые
// части разделяются между снимками, поэтому сравнение по значению не нужно.
func (g *GlobalState) ChangesSince(prev *GlobalState) StateChanges {
	var c StateChanges
	if prev == nil {
		c.Characters = g.CharacterIDs()
		c.Room = true
		return c
	}
	for _, id := range g.CharacterIDs() {
		if prev.characters[id] != g.characters[id] {
			c.Characters = append(c.Characters, id)
		}
	}
	for _, id := range prev.CharacterIDs() {
		if _, ok := g.characters[id]; !ok {
			c.Removed = append(c.Removed, id)
		}
	}
	c.Room = prev.room != g.room
	return c
}
