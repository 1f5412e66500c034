package data

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/dressroom/internal/bundlecodec"
	"github.com/udisondev/dressroom/internal/model"
)

// LoadAssetDefinitions читает файл определений каталога.
func LoadAssetDefinitions(path string) (*AssetDefinitions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset definitions: %w", err)
	}
	defs, err := ParseAssetDefinitions(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseAssetDefinitions decodes YAML asset definitions. Unknown keys are rejected.
func ParseAssetDefinitions(raw []byte) (*AssetDefinitions, error) {
	var defs AssetDefinitions
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("parsing asset definitions: %w", err)
	}
	return &defs, nil
}

// LoadAssetManager загружает каталог из path; пустой path означает встроенный каталог.
func LoadAssetManager(path string) (*model.AssetManager, error) {
	if path == "" {
		return BuildAssetManager(DefaultAssetDefinitions())
	}
	defs, err := LoadAssetDefinitions(path)
	if err != nil {
		return nil, err
	}
	return BuildAssetManager(defs)
}

// BuildAssetManager строит каталог из определений.
// Digest каталога — blake3 от детерминированного кодирования определений.
//
// Returns:
//   - error: неизвестные размеры, типы модулей и enum-значения, а также все
//     ошибки целостности из model.NewAssetManager
func BuildAssetManager(defs *AssetDefinitions) (*model.AssetManager, error) {
	digest, err := bundlecodec.Digest(defs)
	if err != nil {
		return nil, fmt.Errorf("asset definitions digest: %w", err)
	}

	bones := make([]model.BoneDefinition, 0, len(defs.Bones))
	for _, b := range defs.Bones {
		typ := model.BoneType(b.Type)
		if typ == "" {
			typ = model.BoneTypePose
		}
		bones = append(bones, model.BoneDefinition{Name: b.Name, Type: typ, Mirror: b.Mirror})
	}

	bodyparts := make([]model.BodypartDefinition, 0, len(defs.Bodyparts))
	for _, b := range defs.Bodyparts {
		bodyparts = append(bodyparts, model.BodypartDefinition{Name: b.Name, Required: b.Required, AllowMultiple: b.AllowMultiple})
	}

	presets := make([]model.PosePreset, 0, len(defs.PosePresets))
	for _, p := range defs.PosePresets {
		preset, err := convertPreset(p)
		if err != nil {
			return nil, fmt.Errorf("pose preset %q: %w", p.ID, err)
		}
		presets = append(presets, preset)
	}

	assets := make([]*model.Asset, 0, len(defs.Assets))
	for i := range defs.Assets {
		a, err := convertAsset(&defs.Assets[i])
		if err != nil {
			return nil, fmt.Errorf("asset %q: %w", defs.Assets[i].ID, err)
		}
		assets = append(assets, a)
	}

	m, err := model.NewAssetManager(digest, bones, bodyparts, assets, presets)
	if err != nil {
		return nil, fmt.Errorf("building asset catalog: %w", err)
	}

	slog.Info("loaded asset catalog",
		"assets", len(assets),
		"bones", len(bones),
		"bodyparts", len(bodyparts),
		"presets", len(presets),
		"digest", digest[:12])
	return m, nil
}

func convertAsset(def *AssetDef) (*model.Asset, error) {
	size := model.AssetSizeBodypart
	if def.Bodypart == "" {
		if err := size.UnmarshalText([]byte(def.Size)); err != nil {
			return nil, err
		}
	}

	props, err := convertProperties(&def.Properties)
	if err != nil {
		return nil, err
	}

	a := &model.Asset{
		ID:           model.AssetID(def.ID),
		Name:         def.Name,
		Size:         size,
		Bodypart:     def.Bodypart,
		HasGraphics:  def.HasGraphics,
		Wearable:     def.Wearable == nil || *def.Wearable,
		Properties:   props,
		Lock:         def.Lock,
		WearablePart: def.WearablePart,
	}
	for _, c := range def.Colorization {
		a.Colorization = append(a.Colorization, model.ColorizationSlot{Name: c.Name, Default: c.Default})
	}
	if def.RoomDevice != nil {
		slots := make(map[string]model.AssetID, len(def.RoomDevice.Slots))
		for slot, part := range def.RoomDevice.Slots {
			slots[slot] = model.AssetID(part)
		}
		a.RoomDevice = &model.RoomDeviceDefinition{Slots: slots}
	}

	if len(def.Modules) > 0 {
		a.Modules = make(map[string]model.ModuleConfig, len(def.Modules))
		for name, m := range def.Modules {
			cfg, err := convertModule(&m)
			if err != nil {
				return nil, fmt.Errorf("module %q: %w", name, err)
			}
			a.Modules[name] = cfg
		}
	}
	return a, nil
}

func convertModule(def *ModuleDef) (model.ModuleConfig, error) {
	switch model.ModuleKind(def.Type) {
	case model.ModuleKindTyped:
		cfg := &model.TypedModuleConfig{Name: def.Name}
		for _, v := range def.Variants {
			props, err := convertProperties(&v.Properties)
			if err != nil {
				return nil, fmt.Errorf("variant %q: %w", v.ID, err)
			}
			cfg.Variants = append(cfg.Variants, model.TypedVariant{ID: v.ID, Name: v.Name, Default: v.Default, Properties: props})
		}
		return cfg, nil

	case model.ModuleKindStorage:
		var size model.AssetSize
		if err := size.UnmarshalText([]byte(def.MaxAcceptedSize)); err != nil {
			return nil, err
		}
		return &model.StorageModuleConfig{Name: def.Name, MaxCount: def.MaxCount, MaxAcceptedSize: size}, nil

	case model.ModuleKindLockSlot:
		cfg := &model.LockSlotModuleConfig{Name: def.Name, BlockSelf: def.BlockSelf}
		if def.OccupiedProperties != nil {
			props, err := convertProperties(def.OccupiedProperties)
			if err != nil {
				return nil, fmt.Errorf("occupied properties: %w", err)
			}
			cfg.OccupiedProperties = props
		}
		if def.LockedProperties != nil {
			props, err := convertProperties(def.LockedProperties)
			if err != nil {
				return nil, fmt.Errorf("locked properties: %w", err)
			}
			cfg.LockedProperties = props
		}
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown module type %q", def.Type)
	}
}

func convertProperties(def *PropertiesDef) (model.AssetProperties, error) {
	props := model.AssetProperties{
		Attributes:         def.Attributes,
		Requirements:       def.Requirements,
		Hides:              def.Hides,
		OccupySlots:        def.OccupySlots,
		BlockSlots:         def.BlockSlots,
		CoverSlots:         def.CoverSlots,
		BlockAddRemove:     def.BlockAddRemove,
		BlockSelfAddRemove: def.BlockSelfAddRemove,
		BlockModules:       def.BlockModules,
		BlockSelfModules:   def.BlockSelfModules,
	}
	if def.Effects != nil {
		props.Effects = model.Effects{BlockHands: def.Effects.BlockHands, Blind: def.Effects.Blind, Gag: def.Effects.Gag}
	}
	if def.PoseLimits != nil {
		limits, err := convertLimits(def.PoseLimits)
		if err != nil {
			return model.AssetProperties{}, fmt.Errorf("pose limits: %w", err)
		}
		props.PoseLimits = limits
	}
	return props, nil
}

func convertLimits(def *PoseLimitsDef) (*model.PoseLimits, error) {
	out := &model.PoseLimits{}
	if len(def.Bones) > 0 {
		out.Bones = make(map[string]model.IntervalSet, len(def.Bones))
		for bone, r := range def.Bones {
			if len(r) == 0 {
				return nil, fmt.Errorf("bone %q: empty range", bone)
			}
			intervals := make([]model.Interval, 0, len(r))
			for _, pair := range r {
				intervals = append(intervals, model.Interval(pair))
			}
			out.Bones[bone] = model.NewIntervalSet(intervals...)
		}
	}

	var err error
	if out.Arms, err = convertArmLimits(def.Arms); err != nil {
		return nil, fmt.Errorf("arms: %w", err)
	}
	if out.LeftArm, err = convertArmLimits(def.LeftArm); err != nil {
		return nil, fmt.Errorf("leftArm: %w", err)
	}
	if out.RightArm, err = convertArmLimits(def.RightArm); err != nil {
		return nil, fmt.Errorf("rightArm: %w", err)
	}
	if def.View != "" {
		var view model.CharacterView
		if err := view.UnmarshalText([]byte(def.View)); err != nil {
			return nil, err
		}
		out.View = &view
	}

	for i := range def.Options {
		opt, err := convertLimits(&def.Options[i])
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i, err)
		}
		out.Options = append(out.Options, *opt)
	}
	return out, nil
}

func convertArmLimits(def *ArmLimitsDef) (*model.ArmLimits, error) {
	if def == nil {
		return nil, nil
	}
	position, err := parseEnums[model.ArmPosition](def.Position)
	if err != nil {
		return nil, err
	}
	rotation, err := parseEnums[model.ArmRotation](def.Rotation)
	if err != nil {
		return nil, err
	}
	fingers, err := parseEnums[model.ArmFingers](def.Fingers)
	if err != nil {
		return nil, err
	}
	return &model.ArmLimits{Position: position, Rotation: rotation, Fingers: fingers}, nil
}

func convertPreset(def PosePresetDef) (model.PosePreset, error) {
	p := model.PosePreset{ID: def.ID, Name: def.Name, Bones: def.Bones}

	both, err := convertArmPose(def.Arms)
	if err != nil {
		return p, err
	}
	p.LeftArm, p.RightArm = both, both
	if def.LeftArm != nil {
		if p.LeftArm, err = convertArmPose(def.LeftArm); err != nil {
			return p, err
		}
	}
	if def.RightArm != nil {
		if p.RightArm, err = convertArmPose(def.RightArm); err != nil {
			return p, err
		}
	}
	if def.View != "" {
		var view model.CharacterView
		if err := view.UnmarshalText([]byte(def.View)); err != nil {
			return p, err
		}
		p.View = &view
	}
	return p, nil
}

func convertArmPose(def *ArmPoseDef) (*model.ArmPose, error) {
	if def == nil {
		return nil, nil
	}
	var arm model.ArmPose
	if def.Position != "" {
		if err := arm.Position.UnmarshalText([]byte(def.Position)); err != nil {
			return nil, err
		}
	}
	if def.Rotation != "" {
		if err := arm.Rotation.UnmarshalText([]byte(def.Rotation)); err != nil {
			return nil, err
		}
	}
	if def.Fingers != "" {
		if err := arm.Fingers.UnmarshalText([]byte(def.Fingers)); err != nil {
			return nil, err
		}
	}
	return &arm, nil
}

// textEnum — enum-тип модели с text unmarshalling.
type textEnum[T any] interface {
	*T
	UnmarshalText([]byte) error
}

func parseEnums[T any, PT textEnum[T]](values []string) ([]T, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]T, len(values))
	for i, v := range values {
		if err := PT(&out[i]).UnmarshalText([]byte(v)); err != nil {
			return nil, err
		}
	}
	return out, nil
}
