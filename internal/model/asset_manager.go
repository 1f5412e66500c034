package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
)

// BodypartDefinition — часть тела персонажа.
type BodypartDefinition struct {
	Name          string
	Required      bool // ровно один предмет этой части тела
	AllowMultiple bool // допускается больше одного предмета
}

// PosePreset — готовая поза (частичная: заданы только перечисленные значения).
type PosePreset struct {
	ID       string
	Name     string
	Bones    map[string]int
	LeftArm  *ArmPose
	RightArm *ArmPose
	View     *CharacterView
}

// Apply накладывает preset поверх позы.
func (p PosePreset) Apply(pose Pose) Pose {
	out := pose.Clone()
	for bone, v := range p.Bones {
		if _, ok := out.Bones[bone]; ok {
			out.Bones[bone] = clampInt(v, BoneMin, BoneMax)
		}
	}
	if p.LeftArm != nil {
		out.LeftArm = *p.LeftArm
	}
	if p.RightArm != nil {
		out.RightArm = *p.RightArm
	}
	if p.View != nil {
		out.View = *p.View
	}
	return out
}

// AssetManager — immutable каталог ассетов одной версии контента.
// Перезагрузка каталога создаёт новый *AssetManager; старый остаётся валидным
// для состояний, которые на него ссылаются.
type AssetManager struct {
	digest    string
	assets    map[AssetID]*Asset
	order     []AssetID
	bones     []BoneDefinition
	boneIndex map[string]int
	bodyparts []BodypartDefinition
	presets   []PosePreset
}

// NewAssetManager строит каталог и проверяет ссылочную целостность определений.
//
// Parameters:
//   - digest: версия контента (hash определений)
//   - bones, bodyparts, assets, presets: определения в порядке объявления
//
// Returns:
//   - error: дубликаты, неизвестные bodypart/кости, битые ссылки wearable part
func NewAssetManager(digest string, bones []BoneDefinition, bodyparts []BodypartDefinition, assets []*Asset, presets []PosePreset) (*AssetManager, error) {
	m := &AssetManager{
		digest:    digest,
		assets:    make(map[AssetID]*Asset, len(assets)),
		boneIndex: make(map[string]int, len(bones)),
		bones:     slices.Clone(bones),
		bodyparts: slices.Clone(bodyparts),
		presets:   slices.Clone(presets),
	}

	for i, b := range bones {
		if _, dup := m.boneIndex[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bone %q", b.Name)
		}
		if b.Type != BoneTypePose && b.Type != BoneTypeBody {
			return nil, fmt.Errorf("bone %q: unknown type %q", b.Name, b.Type)
		}
		m.boneIndex[b.Name] = i
	}

	bodypartNames := make(map[string]struct{}, len(bodyparts))
	for _, bp := range bodyparts {
		if _, dup := bodypartNames[bp.Name]; dup {
			return nil, fmt.Errorf("duplicate bodypart %q", bp.Name)
		}
		bodypartNames[bp.Name] = struct{}{}
	}

	for _, a := range assets {
		if !a.ID.Valid() {
			return nil, fmt.Errorf("invalid asset id %q", a.ID)
		}
		if _, dup := m.assets[a.ID]; dup {
			return nil, fmt.Errorf("duplicate asset %s", a.ID)
		}
		if a.Bodypart != "" {
			if _, ok := bodypartNames[a.Bodypart]; !ok {
				return nil, fmt.Errorf("asset %s: unknown bodypart %q", a.ID, a.Bodypart)
			}
		}
		for _, slot := range a.Colorization {
			if !validColor(slot.Default) {
				return nil, fmt.Errorf("asset %s: colorization %q: invalid default color %q", a.ID, slot.Name, slot.Default)
			}
		}
		if err := validateAssetModules(a); err != nil {
			return nil, err
		}
		if err := m.validateLimits(a); err != nil {
			return nil, err
		}
		m.assets[a.ID] = a
		m.order = append(m.order, a.ID)
	}

	for _, bp := range bodyparts {
		if bp.Required && m.defaultBodypartAsset(bp.Name) == nil {
			return nil, fmt.Errorf("required bodypart %q has no assets", bp.Name)
		}
	}

	for _, a := range assets {
		if a.RoomDevice == nil {
			continue
		}
		for slot, partID := range a.RoomDevice.Slots {
			part, ok := m.assets[partID]
			if !ok || !part.WearablePart {
				return nil, fmt.Errorf("asset %s: device slot %q references %s which is not a wearable part", a.ID, slot, partID)
			}
		}
	}

	return m, nil
}

func (m *AssetManager) validateLimits(a *Asset) error {
	var check func(l *PoseLimits) error
	check = func(l *PoseLimits) error {
		if l == nil {
			return nil
		}
		for bone := range l.Bones {
			if _, ok := m.boneIndex[bone]; !ok {
				return fmt.Errorf("asset %s: pose limits reference unknown bone %q", a.ID, bone)
			}
		}
		for i := range l.Options {
			if err := check(&l.Options[i]); err != nil {
				return err
			}
		}
		return nil
	}

	props := []*AssetProperties{&a.Properties}
	for _, cfg := range a.Modules {
		switch c := cfg.(type) {
		case *TypedModuleConfig:
			for i := range c.Variants {
				props = append(props, &c.Variants[i].Properties)
			}
		case *LockSlotModuleConfig:
			props = append(props, &c.OccupiedProperties, &c.LockedProperties)
		case *StorageModuleConfig:
		}
	}
	for _, p := range props {
		if err := check(p.PoseLimits); err != nil {
			return err
		}
	}
	return nil
}

// Digest возвращает версию контента каталога.
func (m *AssetManager) Digest() string { return m.digest }

// GetAssetByID возвращает ассет или nil.
func (m *AssetManager) GetAssetByID(id AssetID) *Asset {
	return m.assets[id]
}

// AllAssets returns all assets in declaration order.
func (m *AssetManager) AllAssets() []*Asset {
	out := make([]*Asset, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.assets[id])
	}
	return out
}

// AllBones returns bone definitions in declaration order.
func (m *AssetManager) AllBones() []BoneDefinition {
	return slices.Clone(m.bones)
}

// Bone ищет кость по имени.
func (m *AssetManager) Bone(name string) (BoneDefinition, bool) {
	idx, ok := m.boneIndex[name]
	if !ok {
		return BoneDefinition{}, false
	}
	return m.bones[idx], true
}

// Bodyparts returns bodypart definitions in declaration (wear) order.
func (m *AssetManager) Bodyparts() []BodypartDefinition {
	return slices.Clone(m.bodyparts)
}

// BodypartIndex возвращает позицию bodypart в порядке объявления или -1.
func (m *AssetManager) BodypartIndex(name string) int {
	return slices.IndexFunc(m.bodyparts, func(bp BodypartDefinition) bool { return bp.Name == name })
}

// defaultBodypartAsset returns the first asset of the bodypart in declaration order.
func (m *AssetManager) defaultBodypartAsset(bodypart string) *Asset {
	for _, id := range m.order {
		if a := m.assets[id]; a.Bodypart == bodypart {
			return a
		}
	}
	return nil
}

// PosePresets returns pose presets in declaration order.
func (m *AssetManager) PosePresets() []PosePreset {
	return slices.Clone(m.presets)
}

// PosePreset ищет preset по id.
func (m *AssetManager) PosePreset(id string) (PosePreset, bool) {
	for _, p := range m.presets {
		if p.ID == id {
			return p, true
		}
	}
	return PosePreset{}, false
}

// DefaultPose возвращает позу со всеми костями в 0.
func (m *AssetManager) DefaultPose() Pose {
	pose := Pose{Bones: make(map[string]int, len(m.bones))}
	for _, b := range m.bones {
		pose.Bones[b.Name] = 0
	}
	return pose
}

// NormalizePose оставляет только известные кости, добавляет недостающие
// и ограничивает значения диапазоном [BoneMin, BoneMax].
func (m *AssetManager) NormalizePose(p Pose) Pose {
	out := m.DefaultPose()
	for name, v := range p.Bones {
		if _, ok := out.Bones[name]; ok {
			out.Bones[name] = clampInt(v, BoneMin, BoneMax)
		}
	}
	out.LeftArm = normalizeArm(p.LeftArm)
	out.RightArm = normalizeArm(p.RightArm)
	if p.View == CharacterViewBack {
		out.View = CharacterViewBack
	}
	return out
}

func normalizeArm(a ArmPose) ArmPose {
	if a.Position < ArmPositionFront || a.Position > ArmPositionBackBelowHair {
		a.Position = ArmPositionFront
	}
	if a.Rotation < ArmRotationUp || a.Rotation > ArmRotationBackward {
		a.Rotation = ArmRotationUp
	}
	if a.Fingers != ArmFingersFist {
		a.Fingers = ArmFingersSpread
	}
	return a
}

// CreateItem создаёт предмет из ассета, подгружая состояние из bundle (может быть nil).
// Некорректные части bundle (цвета, модули, вложенные предметы неизвестных ассетов)
// заменяются значениями по умолчанию с warning — загрузка никогда не падает.
func (m *AssetManager) CreateItem(id ItemID, asset *Asset, bundle *ItemBundle, logger *slog.Logger) *Item {
	if logger == nil {
		logger = slog.Default()
	}

	item := &Item{
		id:      id,
		asset:   asset,
		color:   asset.DefaultColors(),
		modules: make(map[string]ModuleState, len(asset.Modules)),
	}

	if bundle != nil && bundle.Color != nil {
		if len(bundle.Color) == len(asset.Colorization) && allValidColors(bundle.Color) {
			item.color = slices.Clone(bundle.Color)
		} else {
			logger.Warn("invalid item color, using defaults", "item", id, "asset", asset.ID, "color", bundle.Color)
		}
	}

	for _, name := range asset.ModuleNames() {
		var mb *ModuleBundle
		if bundle != nil {
			if b, ok := bundle.Modules[name]; ok {
				mb = &b
			}
		}
		item.modules[name] = newModule(m, id, name, asset.Modules[name], mb, logger)
	}

	if bundle != nil {
		if asset.RoomDevice != nil && bundle.RoomDevice != nil {
			for slot, char := range bundle.RoomDevice.Occupants {
				if _, ok := asset.RoomDevice.Slots[slot]; !ok || !char.Valid() {
					logger.Warn("dropping invalid device occupant", "item", id, "slot", slot, "character", char)
					continue
				}
				item = item.WithDeviceOccupant(slot, char)
			}
		}
		if asset.WearablePart && bundle.DeviceLink != nil {
			item.deviceLink = &DeviceLink{Device: bundle.DeviceLink.Device, Slot: bundle.DeviceLink.Slot}
		}
	}

	return item
}

// loadItems загружает список предметов, пропуская неизвестные ассеты и
// некорректные id с warning.
func (m *AssetManager) loadItems(bundles []ItemBundle, logger *slog.Logger) []*Item {
	items := make([]*Item, 0, len(bundles))
	for i := range bundles {
		b := &bundles[i]
		if !b.ID.Valid() {
			logger.Warn("dropping item with invalid id", "item", b.ID, "asset", b.Asset)
			continue
		}
		asset := m.GetAssetByID(b.Asset)
		if asset == nil {
			logger.Warn("dropping item with unknown asset", "item", b.ID, "asset", b.Asset)
			continue
		}
		items = append(items, m.CreateItem(b.ID, asset, b, logger))
	}
	return items
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

func validColor(c string) bool {
	return colorPattern.MatchString(c)
}

func allValidColors(colors []string) bool {
	for _, c := range colors {
		if !validColor(c) {
			return false
		}
	}
	return true
}
