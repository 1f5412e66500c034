package data

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AssetDefinitions — файл определений каталога (YAML).
type AssetDefinitions struct {
	Bones       []BoneDef       `yaml:"bones" cbor:"bones"`
	Bodyparts   []BodypartDef   `yaml:"bodyparts" cbor:"bodyparts"`
	PosePresets []PosePresetDef `yaml:"posePresets" cbor:"posePresets"`
	Assets      []AssetDef      `yaml:"assets" cbor:"assets"`
}

// BoneDef describes one bone.
type BoneDef struct {
	Name   string `yaml:"name" cbor:"name"`
	Type   string `yaml:"type" cbor:"type"`
	Mirror string `yaml:"mirror,omitempty" cbor:"mirror,omitempty"`
}

// BodypartDef describes one bodypart.
type BodypartDef struct {
	Name          string `yaml:"name" cbor:"name"`
	Required      bool   `yaml:"required,omitempty" cbor:"required,omitempty"`
	AllowMultiple bool   `yaml:"allowMultiple,omitempty" cbor:"allowMultiple,omitempty"`
}

// PosePresetDef describes a pose preset.
type PosePresetDef struct {
	ID       string         `yaml:"id" cbor:"id"`
	Name     string         `yaml:"name" cbor:"name"`
	Bones    map[string]int `yaml:"bones,omitempty" cbor:"bones,omitempty"`
	LeftArm  *ArmPoseDef    `yaml:"leftArm,omitempty" cbor:"leftArm,omitempty"`
	RightArm *ArmPoseDef    `yaml:"rightArm,omitempty" cbor:"rightArm,omitempty"`
	Arms     *ArmPoseDef    `yaml:"arms,omitempty" cbor:"arms,omitempty"`
	View     string         `yaml:"view,omitempty" cbor:"view,omitempty"`
}

// ArmPoseDef — поза руки в preset; пустые поля берутся по умолчанию.
type ArmPoseDef struct {
	Position string `yaml:"position,omitempty" cbor:"position,omitempty"`
	Rotation string `yaml:"rotation,omitempty" cbor:"rotation,omitempty"`
	Fingers  string `yaml:"fingers,omitempty" cbor:"fingers,omitempty"`
}

// AssetDef describes one asset.
type AssetDef struct {
	ID           string               `yaml:"id" cbor:"id"`
	Name         string               `yaml:"name" cbor:"name"`
	Size         string               `yaml:"size" cbor:"size"`
	Bodypart     string               `yaml:"bodypart,omitempty" cbor:"bodypart,omitempty"`
	HasGraphics  bool                 `yaml:"hasGraphics,omitempty" cbor:"hasGraphics,omitempty"`
	Wearable     *bool                `yaml:"wearable,omitempty" cbor:"wearable,omitempty"` // по умолчанию true
	Colorization []ColorizationDef    `yaml:"colorization,omitempty" cbor:"colorization,omitempty"`
	Properties   PropertiesDef        `yaml:",inline" cbor:"properties"`
	Modules      map[string]ModuleDef `yaml:"modules,omitempty" cbor:"modules,omitempty"`
	Lock         bool                 `yaml:"lock,omitempty" cbor:"lock,omitempty"`
	RoomDevice   *RoomDeviceDef       `yaml:"roomDevice,omitempty" cbor:"roomDevice,omitempty"`
	WearablePart bool                 `yaml:"wearablePart,omitempty" cbor:"wearablePart,omitempty"`
}

// ColorizationDef describes one colorization slot.
type ColorizationDef struct {
	Name    string `yaml:"name" cbor:"name"`
	Default string `yaml:"default" cbor:"default"`
}

// RoomDeviceDef maps device slots to wearable part assets.
type RoomDeviceDef struct {
	Slots map[string]string `yaml:"slots" cbor:"slots"`
}

// PropertiesDef — свойства ассета или варианта модуля.
type PropertiesDef struct {
	PoseLimits         *PoseLimitsDef     `yaml:"poseLimits,omitempty" cbor:"poseLimits,omitempty"`
	Effects            *EffectsDef        `yaml:"effects,omitempty" cbor:"effects,omitempty"`
	Attributes         []string           `yaml:"attributes,omitempty" cbor:"attributes,omitempty"`
	Requirements       []string           `yaml:"requirements,omitempty" cbor:"requirements,omitempty"`
	Hides              []string           `yaml:"hides,omitempty" cbor:"hides,omitempty"`
	OccupySlots        map[string]float64 `yaml:"occupySlots,omitempty" cbor:"occupySlots,omitempty"`
	BlockSlots         []string           `yaml:"blockSlots,omitempty" cbor:"blockSlots,omitempty"`
	CoverSlots         []string           `yaml:"coverSlots,omitempty" cbor:"coverSlots,omitempty"`
	BlockAddRemove     bool               `yaml:"blockAddRemove,omitempty" cbor:"blockAddRemove,omitempty"`
	BlockSelfAddRemove bool               `yaml:"blockSelfAddRemove,omitempty" cbor:"blockSelfAddRemove,omitempty"`
	BlockModules       []string           `yaml:"blockModules,omitempty" cbor:"blockModules,omitempty"`
	BlockSelfModules   []string           `yaml:"blockSelfModules,omitempty" cbor:"blockSelfModules,omitempty"`
}

// EffectsDef describes effects of a worn item.
type EffectsDef struct {
	BlockHands bool    `yaml:"blockHands,omitempty" cbor:"blockHands,omitempty"`
	Blind      float64 `yaml:"blind,omitempty" cbor:"blind,omitempty"`
	Gag        float64 `yaml:"gag,omitempty" cbor:"gag,omitempty"`
}

// PoseLimitsDef — ограничения позы.
//
//	bones:
//	  leg_l: 0              # ровно одно значение
//	  leg_r: [[-10, 10]]    # список интервалов
//	arms: {position: back}
//	options:
//	  - bones: {leg_l: [[80, 100]]}
//	  - bones: {leg_l: [[-100, -80]]}
type PoseLimitsDef struct {
	Bones    map[string]BoneRange `yaml:"bones,omitempty" cbor:"bones,omitempty"`
	Arms     *ArmLimitsDef        `yaml:"arms,omitempty" cbor:"arms,omitempty"`
	LeftArm  *ArmLimitsDef        `yaml:"leftArm,omitempty" cbor:"leftArm,omitempty"`
	RightArm *ArmLimitsDef        `yaml:"rightArm,omitempty" cbor:"rightArm,omitempty"`
	View     string               `yaml:"view,omitempty" cbor:"view,omitempty"`
	Options  []PoseLimitsDef      `yaml:"options,omitempty" cbor:"options,omitempty"`
}

// ArmLimitsDef lists allowed values; each field is a single value or a list.
type ArmLimitsDef struct {
	Position StringList `yaml:"position,omitempty" cbor:"position,omitempty"`
	Rotation StringList `yaml:"rotation,omitempty" cbor:"rotation,omitempty"`
	Fingers  StringList `yaml:"fingers,omitempty" cbor:"fingers,omitempty"`
}

// ModuleDef — конфигурация модуля; набор полей зависит от Type.
type ModuleDef struct {
	Type string `yaml:"type" cbor:"type"`
	Name string `yaml:"name" cbor:"name"`

	// typed
	Variants []VariantDef `yaml:"variants,omitempty" cbor:"variants,omitempty"`

	// storage
	MaxCount        int    `yaml:"maxCount,omitempty" cbor:"maxCount,omitempty"`
	MaxAcceptedSize string `yaml:"maxAcceptedSize,omitempty" cbor:"maxAcceptedSize,omitempty"`

	// lockSlot
	OccupiedProperties *PropertiesDef `yaml:"occupiedProperties,omitempty" cbor:"occupiedProperties,omitempty"`
	LockedProperties   *PropertiesDef `yaml:"lockedProperties,omitempty" cbor:"lockedProperties,omitempty"`
	BlockSelf          bool           `yaml:"blockSelf,omitempty" cbor:"blockSelf,omitempty"`
}

// VariantDef describes one typed module variant.
type VariantDef struct {
	ID         string        `yaml:"id" cbor:"id"`
	Name       string        `yaml:"name" cbor:"name"`
	Default    bool          `yaml:"default,omitempty" cbor:"default,omitempty"`
	Properties PropertiesDef `yaml:",inline" cbor:"properties"`
}

// BoneRange — допустимые значения кости: одно число или список [min, max].
type BoneRange [][2]int

// UnmarshalYAML accepts `5`, `[5, 10]` and `[[5, 10], [20, 30]]`.
func (r *BoneRange) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v int
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("bone range: %w", err)
		}
		*r = BoneRange{{v, v}}
		return nil
	case yaml.SequenceNode:
		if len(node.Content) == 2 && node.Content[0].Kind == yaml.ScalarNode {
			var pair [2]int
			if err := node.Decode(&pair); err != nil {
				return fmt.Errorf("bone range: %w", err)
			}
			*r = BoneRange{pair}
			return nil
		}
		var pairs [][2]int
		if err := node.Decode(&pairs); err != nil {
			return fmt.Errorf("bone range: %w", err)
		}
		*r = pairs
		return nil
	default:
		return fmt.Errorf("bone range: line %d: expected number or list", node.Line)
	}
}

// StringList decodes a single string or a list of strings.
type StringList []string

// UnmarshalYAML accepts `back` and `[back, front]`.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = StringList{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("string list: %w", err)
	}
	*l = list
	return nil
}
