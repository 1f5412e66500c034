package model

import (
	"fmt"
	"slices"
)

// Asset — immutable определение предмета из каталога.
// Один *Asset разделяется всеми Item этого типа и никогда не изменяется.
type Asset struct {
	ID           AssetID
	Name         string
	Size         AssetSize
	Bodypart     string // пусто для обычных предметов
	HasGraphics  bool
	Wearable     bool
	Colorization []ColorizationSlot
	Properties   AssetProperties
	Modules      map[string]ModuleConfig

	// Lock — ассет можно поместить в lockSlot модуль.
	Lock bool
	// RoomDevice — ассет является room device (мебель с местами для персонажей).
	RoomDevice *RoomDeviceDefinition
	// WearablePart — часть room device, надеваемая на персонажа при входе в device.
	WearablePart bool
}

// IsBodypart reports whether the asset is a body part.
func (a *Asset) IsBodypart() bool {
	return a.Bodypart != ""
}

// ModuleNames возвращает имена модулей в стабильном порядке.
func (a *Asset) ModuleNames() []string {
	names := make([]string, 0, len(a.Modules))
	for name := range a.Modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultColors возвращает цвета по умолчанию для каждого colorization slot.
func (a *Asset) DefaultColors() []string {
	colors := make([]string, len(a.Colorization))
	for i, slot := range a.Colorization {
		colors[i] = slot.Default
	}
	return colors
}

// ColorizationSlot — один настраиваемый цвет предмета.
type ColorizationSlot struct {
	Name    string
	Default string // "#RRGGBB" или "#RRGGBBAA"
}

// RoomDeviceDefinition — места room device: slot → ассет wearable part.
type RoomDeviceDefinition struct {
	Slots map[string]AssetID
}

// AssetSize — размерный класс предмета, ограничивает storage модули.
type AssetSize int

const (
	AssetSizeSmall AssetSize = iota
	AssetSizeMedium
	AssetSizeLarge
	AssetSizeHuge
	AssetSizeBodypart
)

var assetSizeEnum = enumText{kind: "asset size", names: []string{"small", "medium", "large", "huge", "bodypart"}}

func (s AssetSize) String() string { return assetSizeEnum.name(int(s)) }

func (s AssetSize) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *AssetSize) UnmarshalText(text []byte) error {
	idx, err := assetSizeEnum.parse(text)
	*s = AssetSize(idx)
	return err
}

// Effects — эффекты, которые надетые предметы накладывают на персонажа.
type Effects struct {
	BlockHands bool
	Blind      float64 // 0..1
	Gag        float64 // 0..1
}

// Merge объединяет эффекты: флаги через OR, интенсивности через max.
func (e Effects) Merge(o Effects) Effects {
	return Effects{
		BlockHands: e.BlockHands || o.BlockHands,
		Blind:      max(e.Blind, o.Blind),
		Gag:        max(e.Gag, o.Gag),
	}
}

// AssetProperties — свойства, которые предмет (или вариант его модуля) вносит в appearance.
type AssetProperties struct {
	PoseLimits *PoseLimits
	Effects    Effects

	Attributes   []string // предоставляемые атрибуты
	Requirements []string // требуемые атрибуты; "!x" — x должен отсутствовать
	Hides        []string // атрибуты, скрываемые у предметов ниже

	OccupySlots map[string]float64 // slot → доля занятости (сумма ≤ 1)
	BlockSlots  []string           // предметы ниже в этих слотах нельзя надеть/снять
	CoverSlots  []string           // предметы ниже в этих слотах недоступны вообще

	BlockAddRemove     bool
	BlockSelfAddRemove bool
	BlockModules       []string
	BlockSelfModules   []string
}

// ModuleKind — тип модуля (закрытый набор).
type ModuleKind string

const (
	ModuleKindTyped    ModuleKind = "typed"
	ModuleKindStorage  ModuleKind = "storage"
	ModuleKindLockSlot ModuleKind = "lockSlot"
)

// ModuleConfig — конфигурация модуля ассета. Реализации: *TypedModuleConfig,
// *StorageModuleConfig, *LockSlotModuleConfig.
type ModuleConfig interface {
	Kind() ModuleKind
	moduleConfig()
}

// TypedModuleConfig — модуль с выбором одного варианта.
type TypedModuleConfig struct {
	Name     string
	Variants []TypedVariant
}

// TypedVariant — один вариант typed модуля.
type TypedVariant struct {
	ID         string
	Name       string
	Default    bool
	Properties AssetProperties
}

func (*TypedModuleConfig) Kind() ModuleKind { return ModuleKindTyped }
func (*TypedModuleConfig) moduleConfig()    {}

// DefaultVariant returns the variant marked default, or the first one.
func (c *TypedModuleConfig) DefaultVariant() TypedVariant {
	for _, v := range c.Variants {
		if v.Default {
			return v
		}
	}
	if len(c.Variants) == 0 {
		return TypedVariant{}
	}
	return c.Variants[0]
}

// Variant ищет вариант по id.
func (c *TypedModuleConfig) Variant(id string) (TypedVariant, bool) {
	for _, v := range c.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return TypedVariant{}, false
}

// StorageModuleConfig — контейнер для предметов.
type StorageModuleConfig struct {
	Name            string
	MaxCount        int
	MaxAcceptedSize AssetSize
}

func (*StorageModuleConfig) Kind() ModuleKind { return ModuleKindStorage }
func (*StorageModuleConfig) moduleConfig()    {}

// LockSlotModuleConfig — слот для замка.
type LockSlotModuleConfig struct {
	Name               string
	OccupiedProperties AssetProperties // применяются пока в слоте есть замок
	LockedProperties   AssetProperties // применяются пока замок закрыт
	BlockSelf          bool            // персонаж не может открыть замок на себе
}

func (*LockSlotModuleConfig) Kind() ModuleKind { return ModuleKindLockSlot }
func (*LockSlotModuleConfig) moduleConfig()    {}

// validateAssetModules проверяет конфигурацию модулей при построении каталога.
func validateAssetModules(a *Asset) error {
	for name, cfg := range a.Modules {
		switch c := cfg.(type) {
		case *TypedModuleConfig:
			if len(c.Variants) == 0 {
				return fmt.Errorf("asset %s: typed module %q has no variants", a.ID, name)
			}
			seen := make(map[string]struct{}, len(c.Variants))
			for _, v := range c.Variants {
				if _, dup := seen[v.ID]; dup {
					return fmt.Errorf("asset %s: typed module %q: duplicate variant %q", a.ID, name, v.ID)
				}
				seen[v.ID] = struct{}{}
			}
		case *StorageModuleConfig:
			if c.MaxCount <= 0 {
				return fmt.Errorf("asset %s: storage module %q: maxCount must be > 0", a.ID, name)
			}
		case *LockSlotModuleConfig:
		default:
			return fmt.Errorf("asset %s: module %q has unknown kind %T", a.ID, name, cfg)
		}
	}
	return nil
}
