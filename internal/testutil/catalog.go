package testutil

import (
	"testing"

	"github.com/udisondev/dressroom/internal/model"
)

// Ассеты тестового каталога.
const (
	AssetShirt     model.AssetID = "a/shirt"
	AssetPants     model.AssetID = "a/pants"
	AssetJacket    model.AssetID = "a/jacket"
	AssetVest      model.AssetID = "a/vest"
	AssetArmbinder model.AssetID = "a/armbinder"
	AssetMittens   model.AssetID = "a/mittens"
	AssetHood      model.AssetID = "a/hood"
	AssetHelmet    model.AssetID = "a/helmet"
	AssetAnkleA    model.AssetID = "a/ankle_cuffs"
	AssetAnkleB    model.AssetID = "a/ankle_spreader"
	AssetHobble    model.AssetID = "a/hobble"
	AssetBackpack  model.AssetID = "a/backpack"
	AssetBox       model.AssetID = "a/box"
	AssetPouch     model.AssetID = "a/pouch"
	AssetPadlock   model.AssetID = "a/padlock"
	AssetCollar    model.AssetID = "a/collar"
	AssetTag       model.AssetID = "a/tag"
	AssetGag       model.AssetID = "a/gag"
	AssetBody      model.AssetID = "a/body"
	AssetHair      model.AssetID = "a/hair"
	AssetHairLong  model.AssetID = "a/hair_long"
	AssetEyes      model.AssetID = "a/eyes"
	AssetChair     model.AssetID = "a/chair"
	AssetChairSeat model.AssetID = "a/chair_seat"
	AssetNecklace  model.AssetID = "a/necklace"
)

// Кости тестового каталога.
const (
	BoneLegL   = "leg_l"
	BoneLegR   = "leg_r"
	BoneArmL   = "arm_l"
	BoneArmR   = "arm_r"
	BoneHead   = "head"
	BoneBreast = "breasts"
)

// Bones returns the bone definitions of the test catalog.
func Bones() []model.BoneDefinition {
	return []model.BoneDefinition{
		{Name: BoneLegL, Type: model.BoneTypePose, Mirror: BoneLegR},
		{Name: BoneLegR, Type: model.BoneTypePose, Mirror: BoneLegL},
		{Name: BoneArmL, Type: model.BoneTypePose, Mirror: BoneArmR},
		{Name: BoneArmR, Type: model.BoneTypePose, Mirror: BoneArmL},
		{Name: BoneHead, Type: model.BoneTypePose},
		{Name: BoneBreast, Type: model.BoneTypeBody},
	}
}

func one(iv model.Interval) model.IntervalSet { return model.NewIntervalSet(iv) }

// Assets строит ассеты тестового каталога.
func Assets() []*model.Asset {
	back := model.CharacterViewBack
	return []*model.Asset{
		{ID: AssetBody, Name: "Body", Size: model.AssetSizeBodypart, Bodypart: "body", HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "skin", Default: "#FFE0C0"}},
			Properties:   model.AssetProperties{Attributes: []string{"Body", "Neck", "Arms", "Legs"}}},
		{ID: AssetEyes, Name: "Eyes", Size: model.AssetSizeBodypart, Bodypart: "eyes", HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "iris", Default: "#3060A0"}}},
		{ID: AssetHair, Name: "Short hair", Size: model.AssetSizeBodypart, Bodypart: "hair", HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "hair", Default: "#553311"}}},
		{ID: AssetHairLong, Name: "Long hair", Size: model.AssetSizeBodypart, Bodypart: "hair", HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "hair", Default: "#553311"}}},

		{ID: AssetShirt, Name: "Shirt", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "cloth", Default: "#FFFFFF"}},
			Properties: model.AssetProperties{
				Attributes:  []string{"Clothing", "Top"},
				OccupySlots: map[string]float64{"top": 0.5},
			}},
		{ID: AssetVest, Name: "Vest", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Attributes:  []string{"Clothing"},
				OccupySlots: map[string]float64{"top": 0.5},
			}},
		{ID: AssetJacket, Name: "Jacket", Size: model.AssetSizeLarge, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Attributes:  []string{"Clothing"},
				OccupySlots: map[string]float64{"top": 1},
				BlockSlots:  []string{"top"},
			}},
		{ID: AssetPants, Name: "Pants", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "cloth", Default: "#202060"}},
			Properties: model.AssetProperties{
				Attributes:   []string{"Clothing"},
				Requirements: []string{"Legs"},
				OccupySlots:  map[string]float64{"legs": 1},
			}},
		{ID: AssetArmbinder, Name: "Armbinder", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Requirements:       []string{"Arms"},
				Attributes:         []string{"Restraint"},
				BlockAddRemove:     true,
				BlockSelfAddRemove: true,
				Effects:            model.Effects{BlockHands: true},
				PoseLimits: &model.PoseLimits{
					Arms: &model.ArmLimits{Position: []model.ArmPosition{model.ArmPositionBack}},
				},
			}},
		{ID: AssetMittens, Name: "Mittens", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Attributes:         []string{"Restraint"},
				BlockSelfAddRemove: true,
				Effects:            model.Effects{BlockHands: true},
				PoseLimits: &model.PoseLimits{
					Arms: &model.ArmLimits{Fingers: []model.ArmFingers{model.ArmFingersFist}},
				},
			}},
		{ID: AssetHood, Name: "Hood", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Attributes: []string{"Hood"},
				Hides:      []string{"Neck"},
				CoverSlots: []string{"neck"},
				Effects:    model.Effects{Blind: 1},
			}},
		{ID: AssetHelmet, Name: "Helmet", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Requirements: []string{"!Hood"},
				OccupySlots:  map[string]float64{"head": 1},
			}},
		{ID: AssetNecklace, Name: "Necklace", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				Requirements: []string{"Neck"},
				OccupySlots:  map[string]float64{"neck": 0},
			}},
		{ID: AssetAnkleA, Name: "Ankle cuffs", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				PoseLimits: &model.PoseLimits{Bones: map[string]model.IntervalSet{BoneLegL: one(model.Interval{-10, 10})}},
			}},
		{ID: AssetAnkleB, Name: "Ankle spreader", Size: model.AssetSizeMedium, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				PoseLimits: &model.PoseLimits{Bones: map[string]model.IntervalSet{BoneLegL: one(model.Interval{5, 20})}},
			}},
		{ID: AssetHobble, Name: "Hobble", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Properties: model.AssetProperties{
				PoseLimits: &model.PoseLimits{
					Bones: map[string]model.IntervalSet{BoneLegL: one(model.Interval{50, 60})},
				},
			}},
		{ID: AssetBackpack, Name: "Backpack", Size: model.AssetSizeLarge, Wearable: true, HasGraphics: true,
			Modules: map[string]model.ModuleConfig{
				"storage": &model.StorageModuleConfig{Name: "Pocket", MaxCount: 2, MaxAcceptedSize: model.AssetSizeMedium},
			}},
		{ID: AssetBox, Name: "Box", Size: model.AssetSizeHuge, Wearable: false, HasGraphics: true,
			Modules: map[string]model.ModuleConfig{
				"storage": &model.StorageModuleConfig{Name: "Inside", MaxCount: 10, MaxAcceptedSize: model.AssetSizeLarge},
			}},
		{ID: AssetPouch, Name: "Pouch", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Modules: map[string]model.ModuleConfig{
				"storage": &model.StorageModuleConfig{Name: "Pouch", MaxCount: 3, MaxAcceptedSize: model.AssetSizeSmall},
			}},
		{ID: AssetPadlock, Name: "Padlock", Size: model.AssetSizeSmall, Wearable: false, Lock: true, HasGraphics: true},
		{ID: AssetTag, Name: "Tag", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true},
		{ID: AssetCollar, Name: "Collar", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Colorization: []model.ColorizationSlot{{Name: "leather", Default: "#000000"}},
			Properties: model.AssetProperties{
				Requirements: []string{"Neck"},
				Attributes:   []string{"Collar"},
			},
			Modules: map[string]model.ModuleConfig{
				"lock": &model.LockSlotModuleConfig{
					Name:             "Lock",
					LockedProperties: model.AssetProperties{BlockAddRemove: true, BlockModules: []string{"ring"}},
				},
				"ring": &model.TypedModuleConfig{Name: "Ring", Variants: []model.TypedVariant{
					{ID: "none", Name: "No ring", Default: true},
					{ID: "ring", Name: "Ring", Properties: model.AssetProperties{Attributes: []string{"Leashable"}}},
				}},
			}},
		{ID: AssetGag, Name: "Gag", Size: model.AssetSizeSmall, Wearable: true, HasGraphics: true,
			Modules: map[string]model.ModuleConfig{
				"strap": &model.TypedModuleConfig{Name: "Strap", Variants: []model.TypedVariant{
					{ID: "loose", Name: "Loose", Default: true, Properties: model.AssetProperties{Effects: model.Effects{Gag: 0.3}}},
					{ID: "tight", Name: "Tight", Properties: model.AssetProperties{
						Effects:    model.Effects{Gag: 1},
						PoseLimits: &model.PoseLimits{View: &back, Bones: map[string]model.IntervalSet{BoneHead: one(model.Interval{-5, 5})}},
					}},
				}},
			}},
		{ID: AssetChair, Name: "Chair", Size: model.AssetSizeHuge, Wearable: false, HasGraphics: true,
			RoomDevice: &model.RoomDeviceDefinition{Slots: map[string]model.AssetID{"seat": AssetChairSeat}}},
		{ID: AssetChairSeat, Name: "Seated", Size: model.AssetSizeHuge, Wearable: true, WearablePart: true,
			Properties: model.AssetProperties{
				PoseLimits: &model.PoseLimits{Options: []model.PoseLimits{
					{Bones: map[string]model.IntervalSet{BoneLegL: one(model.Interval{80, 100})}},
					{Bones: map[string]model.IntervalSet{BoneLegL: one(model.Interval{-100, -80})}},
				}},
			}},
	}
}

// Bodyparts returns the bodypart definitions; body is required only when requiredBody is set.
func Bodyparts(requiredBody bool) []model.BodypartDefinition {
	return []model.BodypartDefinition{
		{Name: "body", Required: requiredBody},
		{Name: "eyes"},
		{Name: "hair", AllowMultiple: true},
	}
}

// PosePresets returns pose presets of the test catalog.
func PosePresets() []model.PosePreset {
	back := model.ArmPose{Position: model.ArmPositionBack}
	return []model.PosePreset{
		{ID: "kneel", Name: "Kneel", Bones: map[string]int{BoneLegL: 90, BoneLegR: 90}},
		{ID: "hands_back", Name: "Hands behind", LeftArm: &back, RightArm: &back},
	}
}

// Catalog строит тестовый каталог без обязательных частей тела.
func Catalog(tb testing.TB) *model.AssetManager {
	tb.Helper()
	return buildCatalog(tb, false)
}

// CatalogWithBody строит тестовый каталог с обязательной частью тела "body".
func CatalogWithBody(tb testing.TB) *model.AssetManager {
	tb.Helper()
	return buildCatalog(tb, true)
}

func buildCatalog(tb testing.TB, requiredBody bool) *model.AssetManager {
	tb.Helper()
	m, err := model.NewAssetManager("test", Bones(), Bodyparts(requiredBody), Assets(), PosePresets())
	if err != nil {
		tb.Fatalf("building test catalog: %v", err)
	}
	return m
}

// NewItem создаёт предмет тестового каталога с состоянием по умолчанию.
func NewItem(tb testing.TB, assets *model.AssetManager, id model.ItemID, asset model.AssetID) *model.Item {
	tb.Helper()
	a := assets.GetAssetByID(asset)
	if a == nil {
		tb.Fatalf("unknown test asset %s", asset)
	}
	return assets.CreateItem(id, a, nil, nil)
}

// Wear returns a character state wearing the given items in order.
func Wear(tb testing.TB, assets *model.AssetManager, id model.CharacterID, items ...*model.Item) *model.CharacterState {
	tb.Helper()
	return model.NewCharacterState(assets, id).ProduceWithItems(items)
}
