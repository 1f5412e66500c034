package model

import (
	"fmt"
	"maps"
	"slices"
)

// Диапазон значений любой кости (градусы).
const (
	BoneMin = -180
	BoneMax = 180
)

// BoneType отделяет позу (pose) от формы тела (body).
type BoneType string

const (
	BoneTypePose BoneType = "pose"
	BoneTypeBody BoneType = "body"
)

// BoneDefinition — описание кости из каталога.
type BoneDefinition struct {
	Name   string
	Type   BoneType
	Mirror string // имя зеркальной кости (arm_l ↔ arm_r), может быть пустым
}

// enumText реализует text (un)marshalling для enum-типов, хранящих индекс в списке имён.
type enumText struct {
	kind  string
	names []string
}

func (e enumText) name(v int) string {
	if v < 0 || v >= len(e.names) {
		return fmt.Sprintf("UNKNOWN(%d)", v)
	}
	return e.names[v]
}

func (e enumText) parse(text []byte) (int, error) {
	idx := slices.Index(e.names, string(text))
	if idx < 0 {
		return 0, fmt.Errorf("unknown %s %q", e.kind, text)
	}
	return idx, nil
}

var (
	armPositionEnum   = enumText{kind: "arm position", names: []string{"front", "back", "front_above_hair", "back_below_hair"}}
	armRotationEnum   = enumText{kind: "arm rotation", names: []string{"up", "down", "forward", "backward"}}
	armFingersEnum    = enumText{kind: "arm fingers", names: []string{"spread", "fist"}}
	characterViewEnum = enumText{kind: "character view", names: []string{"front", "back"}}
)

// ArmPosition — положение руки относительно тела.
type ArmPosition int

const (
	ArmPositionFront ArmPosition = iota
	ArmPositionBack
	ArmPositionFrontAboveHair
	ArmPositionBackBelowHair
)

func (v ArmPosition) String() string { return armPositionEnum.name(int(v)) }

func (v ArmPosition) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *ArmPosition) UnmarshalText(text []byte) error {
	idx, err := armPositionEnum.parse(text)
	*v = ArmPosition(idx)
	return err
}

// ArmRotation — поворот кисти.
type ArmRotation int

const (
	ArmRotationUp ArmRotation = iota
	ArmRotationDown
	ArmRotationForward
	ArmRotationBackward
)

func (v ArmRotation) String() string { return armRotationEnum.name(int(v)) }

func (v ArmRotation) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *ArmRotation) UnmarshalText(text []byte) error {
	idx, err := armRotationEnum.parse(text)
	*v = ArmRotation(idx)
	return err
}

// ArmFingers — состояние пальцев.
type ArmFingers int

const (
	ArmFingersSpread ArmFingers = iota
	ArmFingersFist
)

func (v ArmFingers) String() string { return armFingersEnum.name(int(v)) }

func (v ArmFingers) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *ArmFingers) UnmarshalText(text []byte) error {
	idx, err := armFingersEnum.parse(text)
	*v = ArmFingers(idx)
	return err
}

// CharacterView — с какой стороны отрисовывается персонаж.
type CharacterView int

const (
	CharacterViewFront CharacterView = iota
	CharacterViewBack
)

func (v CharacterView) String() string { return characterViewEnum.name(int(v)) }

func (v CharacterView) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *CharacterView) UnmarshalText(text []byte) error {
	idx, err := characterViewEnum.parse(text)
	*v = CharacterView(idx)
	return err
}

// ArmPose — поза одной руки.
type ArmPose struct {
	Position ArmPosition `json:"position" cbor:"position"`
	Rotation ArmRotation `json:"rotation" cbor:"rotation"`
	Fingers  ArmFingers  `json:"fingers" cbor:"fingers"`
}

// Pose — полная поза персонажа: кости, руки и view.
// Значение трактуется как immutable: Bones никогда не изменяется после создания,
// все изменения идут через Clone/With*.
type Pose struct {
	Bones    map[string]int
	LeftArm  ArmPose
	RightArm ArmPose
	View     CharacterView
}

// Clone возвращает глубокую копию позы.
func (p Pose) Clone() Pose {
	p.Bones = maps.Clone(p.Bones)
	if p.Bones == nil {
		p.Bones = map[string]int{}
	}
	return p
}

// Bone returns the bone value, 0 when the bone is not set.
func (p Pose) Bone(name string) int {
	return p.Bones[name]
}

// WithBone returns a copy of the pose with the bone value clamped to [BoneMin, BoneMax].
func (p Pose) WithBone(name string, value int) Pose {
	out := p.Clone()
	out.Bones[name] = clampInt(value, BoneMin, BoneMax)
	return out
}

// Equal сравнивает позы по значению.
func (p Pose) Equal(o Pose) bool {
	if p.LeftArm != o.LeftArm || p.RightArm != o.RightArm || p.View != o.View {
		return false
	}
	if len(p.Bones) != len(o.Bones) {
		return false
	}
	for k, v := range p.Bones {
		if ov, ok := o.Bones[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Ключи плоского представления позы для AppearanceLimitTree.
const (
	flatBonePrefix  = "bones."
	flatLeftArm     = "leftArm."
	flatRightArm    = "rightArm."
	flatArmPosition = "position"
	flatArmRotation = "rotation"
	flatArmFingers  = "fingers"
	flatView        = "view"
)

// FlatPose — плоское представление позы: key → число.
// bones.<name>, leftArm.position, leftArm.rotation, leftArm.fingers, rightArm.*, view.
type FlatPose map[string]int

// BoneKey returns the flat key of a bone.
func BoneKey(name string) string { return flatBonePrefix + name }

// Flatten переводит позу в плоскую форму.
func (p Pose) Flatten() FlatPose {
	out := make(FlatPose, len(p.Bones)+7)
	for name, v := range p.Bones {
		out[flatBonePrefix+name] = v
	}
	flattenArm(out, flatLeftArm, p.LeftArm)
	flattenArm(out, flatRightArm, p.RightArm)
	out[flatView] = int(p.View)
	return out
}

func flattenArm(out FlatPose, prefix string, arm ArmPose) {
	out[prefix+flatArmPosition] = int(arm.Position)
	out[prefix+flatArmRotation] = int(arm.Rotation)
	out[prefix+flatArmFingers] = int(arm.Fingers)
}

// Unflatten применяет значения плоской формы поверх base и возвращает новую позу.
// Ключи, которых нет в base (неизвестные кости), игнорируются.
func (f FlatPose) Unflatten(base Pose) Pose {
	out := base.Clone()
	for name := range out.Bones {
		if v, ok := f[flatBonePrefix+name]; ok {
			out.Bones[name] = v
		}
	}
	out.LeftArm = unflattenArm(f, flatLeftArm, out.LeftArm)
	out.RightArm = unflattenArm(f, flatRightArm, out.RightArm)
	if v, ok := f[flatView]; ok {
		out.View = CharacterView(v)
	}
	return out
}

func unflattenArm(f FlatPose, prefix string, arm ArmPose) ArmPose {
	if v, ok := f[prefix+flatArmPosition]; ok {
		arm.Position = ArmPosition(v)
	}
	if v, ok := f[prefix+flatArmRotation]; ok {
		arm.Rotation = ArmRotation(v)
	}
	if v, ok := f[prefix+flatArmFingers]; ok {
		arm.Fingers = ArmFingers(v)
	}
	return arm
}

func (f FlatPose) clone() FlatPose {
	return maps.Clone(f)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
