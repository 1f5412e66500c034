package model

import (
	"fmt"
	"log/slog"
)

// ModuleState — состояние модуля конкретного предмета. Закрытый sum type:
// *TypedModule, *StorageModule, *LockSlotModule. Каждое место потребления
// делает exhaustive switch по этим трём типам.
type ModuleState interface {
	Kind() ModuleKind
	exportToBundle() ModuleBundle
	moduleState()
}

// ContainerModule — модуль, содержащий предметы (storage и lockSlot).
type ContainerModule interface {
	ModuleState
	Items() []*Item
	WithItems(items []*Item) ContainerModule
}

// ModuleBundle — сериализованное состояние модуля. Набор полей зависит от Type.
type ModuleBundle struct {
	Type     ModuleKind   `json:"type" cbor:"type"`
	Variant  string       `json:"variant,omitempty" cbor:"variant,omitempty"`
	Contents []ItemBundle `json:"contents,omitempty" cbor:"contents,omitempty"`
	Lock     *ItemBundle  `json:"lock,omitempty" cbor:"lock,omitempty"`
	Locked   bool         `json:"locked,omitempty" cbor:"locked,omitempty"`
}

// TypedModule — выбранный вариант typed модуля.
type TypedModule struct {
	config  *TypedModuleConfig
	variant TypedVariant
}

func (*TypedModule) Kind() ModuleKind { return ModuleKindTyped }
func (*TypedModule) moduleState()     {}

// Config returns the module configuration.
func (m *TypedModule) Config() *TypedModuleConfig { return m.config }

// Variant returns the selected variant.
func (m *TypedModule) Variant() TypedVariant { return m.variant }

// WithVariant возвращает модуль с другим вариантом; false если вариант неизвестен.
func (m *TypedModule) WithVariant(id string) (*TypedModule, bool) {
	v, ok := m.config.Variant(id)
	if !ok {
		return nil, false
	}
	return &TypedModule{config: m.config, variant: v}, true
}

func (m *TypedModule) exportToBundle() ModuleBundle {
	return ModuleBundle{Type: ModuleKindTyped, Variant: m.variant.ID}
}

// StorageModule — упорядоченный список вложенных предметов.
type StorageModule struct {
	config   *StorageModuleConfig
	contents []*Item
}

func (*StorageModule) Kind() ModuleKind { return ModuleKindStorage }
func (*StorageModule) moduleState()     {}

// Config returns the module configuration.
func (m *StorageModule) Config() *StorageModuleConfig { return m.config }

// Items returns the contained items. The slice must not be modified.
func (m *StorageModule) Items() []*Item { return m.contents }

// WithItems returns a storage module with new contents.
func (m *StorageModule) WithItems(items []*Item) ContainerModule {
	return &StorageModule{config: m.config, contents: items}
}

func (m *StorageModule) exportToBundle() ModuleBundle {
	b := ModuleBundle{Type: ModuleKindStorage}
	for _, item := range m.contents {
		b.Contents = append(b.Contents, item.ExportToBundle())
	}
	return b
}

// LockSlotModule — слот для одного замка и флаг закрытия.
// Хранит список, чтобы переполнение (больше одного замка) ловилось валидацией,
// а не было непредставимо.
type LockSlotModule struct {
	config *LockSlotModuleConfig
	lock   []*Item
	locked bool
}

func (*LockSlotModule) Kind() ModuleKind { return ModuleKindLockSlot }
func (*LockSlotModule) moduleState()     {}

// Config returns the module configuration.
func (m *LockSlotModule) Config() *LockSlotModuleConfig { return m.config }

// Items returns the lock item as a 0/1 length slice.
func (m *LockSlotModule) Items() []*Item { return m.lock }

// Lock returns the lock item or nil.
func (m *LockSlotModule) Lock() *Item {
	if len(m.lock) == 0 {
		return nil
	}
	return m.lock[0]
}

// Locked reports whether the lock is closed.
func (m *LockSlotModule) Locked() bool { return m.locked }

// WithItems returns a lock slot with new contents; the locked flag is kept.
func (m *LockSlotModule) WithItems(items []*Item) ContainerModule {
	return &LockSlotModule{config: m.config, lock: items, locked: m.locked}
}

// WithLocked returns a lock slot with the locked flag changed.
func (m *LockSlotModule) WithLocked(locked bool) *LockSlotModule {
	return &LockSlotModule{config: m.config, lock: m.lock, locked: locked}
}

func (m *LockSlotModule) exportToBundle() ModuleBundle {
	b := ModuleBundle{Type: ModuleKindLockSlot, Locked: m.locked}
	if lock := m.Lock(); lock != nil {
		lb := lock.ExportToBundle()
		b.Lock = &lb
	}
	return b
}

// newModule создаёт модуль по конфигурации, загружая состояние из bundle (может быть nil).
// Несовместимые данные отбрасываются с warning, модуль получает значения по умолчанию.
func newModule(assets *AssetManager, owner ItemID, name string, cfg ModuleConfig, bundle *ModuleBundle, logger *slog.Logger) ModuleState {
	if bundle != nil && bundle.Type != cfg.Kind() {
		logger.Warn("module type mismatch, using defaults",
			"item", owner, "module", name, "want", cfg.Kind(), "got", bundle.Type)
		bundle = nil
	}

	switch c := cfg.(type) {
	case *TypedModuleConfig:
		m := &TypedModule{config: c, variant: c.DefaultVariant()}
		if bundle != nil && bundle.Variant != "" {
			if v, ok := c.Variant(bundle.Variant); ok {
				m.variant = v
			} else {
				logger.Warn("unknown typed module variant, using default",
					"item", owner, "module", name, "variant", bundle.Variant)
			}
		}
		return m
	case *StorageModuleConfig:
		m := &StorageModule{config: c}
		if bundle != nil {
			m.contents = assets.loadItems(bundle.Contents, logger)
		}
		return m
	case *LockSlotModuleConfig:
		m := &LockSlotModule{config: c}
		if bundle != nil {
			if bundle.Lock != nil {
				m.lock = assets.loadItems([]ItemBundle{*bundle.Lock}, logger)
			}
			m.locked = bundle.Locked && len(m.lock) > 0
		}
		return m
	default:
		panic(fmt.Sprintf("model: unknown module config %T", cfg))
	}
}
