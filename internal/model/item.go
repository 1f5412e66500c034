package model

import (
	"maps"
	"slices"
)

// Item — конкретный экземпляр ассета (цвет, модули).
// Item immutable: любое изменение создаёт новый *Item, неизменённые поля
// (модули, вложенные предметы) разделяются со старым значением.
type Item struct {
	id      ItemID
	asset   *Asset
	color   []string
	modules map[string]ModuleState

	// Только для room device ассетов: slot → персонаж, занимающий место.
	deviceOccupants map[string]CharacterID
	// Только для wearable part: к какому device и слоту привязан предмет.
	deviceLink *DeviceLink
}

// DeviceLink связывает wearable part на персонаже с room device в комнате.
type DeviceLink struct {
	Device ItemID `json:"device" cbor:"device"`
	Slot   string `json:"slot" cbor:"slot"`
}

// ItemBundle — сериализованная форма предмета.
type ItemBundle struct {
	ID         ItemID                  `json:"id" cbor:"id"`
	Asset      AssetID                 `json:"asset" cbor:"asset"`
	Color      []string                `json:"color,omitempty" cbor:"color,omitempty"`
	Modules    map[string]ModuleBundle `json:"modules,omitempty" cbor:"modules,omitempty"`
	RoomDevice *RoomDeviceBundle       `json:"roomDevice,omitempty" cbor:"roomDevice,omitempty"`
	DeviceLink *DeviceLink             `json:"roomDeviceLink,omitempty" cbor:"roomDeviceLink,omitempty"`
}

// RoomDeviceBundle — сериализованные места room device.
type RoomDeviceBundle struct {
	Occupants map[string]CharacterID `json:"occupants,omitempty" cbor:"occupants,omitempty"`
}

// ID возвращает идентификатор предмета.
func (i *Item) ID() ItemID { return i.id }

// Asset возвращает immutable определение ассета.
func (i *Item) Asset() *Asset { return i.asset }

// Color возвращает копию цветов (по одному на colorization slot).
func (i *Item) Color() []string { return slices.Clone(i.color) }

// Module возвращает состояние модуля или nil.
func (i *Item) Module(name string) ModuleState { return i.modules[name] }

// ModuleNames returns module names in stable order.
func (i *Item) ModuleNames() []string { return i.asset.ModuleNames() }

// DeviceOccupants возвращает копию занятых мест room device.
func (i *Item) DeviceOccupants() map[string]CharacterID { return maps.Clone(i.deviceOccupants) }

// DeviceLink возвращает привязку wearable part или nil.
func (i *Item) DeviceLink() *DeviceLink {
	if i.deviceLink == nil {
		return nil
	}
	link := *i.deviceLink
	return &link
}

// WithColor returns a copy of the item with new colors.
// Количество и формат цветов проверяются валидацией.
func (i *Item) WithColor(color []string) *Item {
	out := *i
	out.color = slices.Clone(color)
	return &out
}

// WithModule возвращает копию предмета с заменённым модулем.
func (i *Item) WithModule(name string, m ModuleState) *Item {
	out := *i
	out.modules = maps.Clone(i.modules)
	out.modules[name] = m
	return &out
}

// WithDeviceOccupant возвращает копию room device с изменённым местом.
// Пустой character освобождает место.
func (i *Item) WithDeviceOccupant(slot string, character CharacterID) *Item {
	out := *i
	out.deviceOccupants = maps.Clone(i.deviceOccupants)
	if out.deviceOccupants == nil {
		out.deviceOccupants = make(map[string]CharacterID)
	}
	if character == "" {
		delete(out.deviceOccupants, slot)
	} else {
		out.deviceOccupants[slot] = character
	}
	return &out
}

// WithDeviceLink returns a copy of the wearable part linked to a device slot.
func (i *Item) WithDeviceLink(link *DeviceLink) *Item {
	out := *i
	if link != nil {
		l := *link
		out.deviceLink = &l
	} else {
		out.deviceLink = nil
	}
	return &out
}

// ContainerModules возвращает модули-контейнеры предмета в стабильном порядке имён.
func (i *Item) ContainerModules() []NamedContainer {
	var out []NamedContainer
	for _, name := range i.asset.ModuleNames() {
		if c, ok := i.modules[name].(ContainerModule); ok {
			out = append(out, NamedContainer{Name: name, Module: c})
		}
	}
	return out
}

// NamedContainer — модуль-контейнер вместе с его именем.
type NamedContainer struct {
	Name   string
	Module ContainerModule
}

// ExportToBundle сериализует предмет. Модули экспортируются все, в порядке
// конфигурации ассета, поэтому export → load → export стабилен.
func (i *Item) ExportToBundle() ItemBundle {
	b := ItemBundle{
		ID:    i.id,
		Asset: i.asset.ID,
		Color: slices.Clone(i.color),
	}
	if len(i.modules) > 0 {
		b.Modules = make(map[string]ModuleBundle, len(i.modules))
		for _, name := range i.asset.ModuleNames() {
			if m, ok := i.modules[name]; ok {
				b.Modules[name] = m.exportToBundle()
			}
		}
	}
	if i.asset.RoomDevice != nil && len(i.deviceOccupants) > 0 {
		b.RoomDevice = &RoomDeviceBundle{Occupants: maps.Clone(i.deviceOccupants)}
	}
	if i.deviceLink != nil {
		link := *i.deviceLink
		b.DeviceLink = &link
	}
	return b
}
