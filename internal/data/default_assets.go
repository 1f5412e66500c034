package data

// Встроенный каталог: используется, когда в конфиге shard не задан assets_path,
// и как каталог по умолчанию для directory при создании персонажей.

func boolPtr(v bool) *bool { return &v }

// DefaultAssetDefinitions возвращает встроенные определения каталога.
// Каждый вызов возвращает новую копию.
func DefaultAssetDefinitions() *AssetDefinitions {
	return &AssetDefinitions{
		Bones:       defaultBones(),
		Bodyparts:   defaultBodyparts(),
		PosePresets: defaultPosePresets(),
		Assets:      defaultAssets(),
	}
}

func defaultBones() []BoneDef {
	return []BoneDef{
		{Name: "arm_l", Type: "pose", Mirror: "arm_r"},
		{Name: "arm_r", Type: "pose", Mirror: "arm_l"},
		{Name: "elbow_l", Type: "pose", Mirror: "elbow_r"},
		{Name: "elbow_r", Type: "pose", Mirror: "elbow_l"},
		{Name: "leg_l", Type: "pose", Mirror: "leg_r"},
		{Name: "leg_r", Type: "pose", Mirror: "leg_l"},
		{Name: "kneeling", Type: "pose"},
		{Name: "head_tilt", Type: "pose"},
		{Name: "character_rotation", Type: "pose"},
		{Name: "breasts", Type: "body"},
		{Name: "waist", Type: "body"},
		{Name: "height", Type: "body"},
	}
}

func defaultBodyparts() []BodypartDef {
	return []BodypartDef{
		{Name: "body", Required: true},
		{Name: "eyes", Required: true},
		{Name: "mouth", Required: true},
		{Name: "hair", AllowMultiple: true},
		{Name: "ears"},
	}
}

func defaultPosePresets() []PosePresetDef {
	return []PosePresetDef{
		{ID: "stand", Name: "Stand", Bones: map[string]int{"leg_l": 0, "leg_r": 0, "kneeling": 0},
			Arms: &ArmPoseDef{Position: "front", Rotation: "down", Fingers: "spread"}},
		{ID: "kneel", Name: "Kneel", Bones: map[string]int{"kneeling": 90}},
		{ID: "sit", Name: "Sit", Bones: map[string]int{"leg_l": 90, "leg_r": 90}},
		{ID: "hands_back", Name: "Hands behind back", Arms: &ArmPoseDef{Position: "back"}},
		{ID: "hands_up", Name: "Hands up", Bones: map[string]int{"arm_l": 170, "arm_r": 170},
			Arms: &ArmPoseDef{Position: "front_above_hair", Rotation: "up"}},
		{ID: "turn_around", Name: "Turn around", View: "back"},
	}
}

func defaultAssets() []AssetDef {
	return []AssetDef{
		// Bodyparts
		{ID: "a/body_normal", Name: "Body", Bodypart: "body", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Skin", Default: "#F5D0B5"}},
			Properties:   PropertiesDef{Attributes: []string{"Body", "Neck", "Arms", "Hands", "Legs", "Feet", "Head"}}},
		{ID: "a/body_slim", Name: "Slim body", Bodypart: "body", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Skin", Default: "#F5D0B5"}},
			Properties:   PropertiesDef{Attributes: []string{"Body", "Neck", "Arms", "Hands", "Legs", "Feet", "Head"}}},
		{ID: "a/eyes_round", Name: "Round eyes", Bodypart: "eyes", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Iris", Default: "#4A7DB5"}},
			Properties:   PropertiesDef{Attributes: []string{"Eyes"}}},
		{ID: "a/eyes_narrow", Name: "Narrow eyes", Bodypart: "eyes", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Iris", Default: "#5B3A1E"}},
			Properties:   PropertiesDef{Attributes: []string{"Eyes"}}},
		{ID: "a/mouth_default", Name: "Mouth", Bodypart: "mouth", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Lips", Default: "#C06070"}},
			Properties:   PropertiesDef{Attributes: []string{"Mouth"}}},
		{ID: "a/hair_short", Name: "Short hair", Bodypart: "hair", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Hair", Default: "#3B2416"}}},
		{ID: "a/hair_long", Name: "Long hair", Bodypart: "hair", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Hair", Default: "#3B2416"}}},
		{ID: "a/hair_ponytail", Name: "Ponytail", Bodypart: "hair", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Hair", Default: "#3B2416"}}},
		{ID: "a/ears_pointy", Name: "Pointy ears", Bodypart: "ears", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Skin", Default: "#F5D0B5"}}},

		// Clothing
		{ID: "a/shirt", Name: "Shirt", Size: "medium", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#FFFFFF"}},
			Properties: PropertiesDef{
				Requirements: []string{"Body"},
				Attributes:   []string{"Clothing", "Top"},
				OccupySlots:  map[string]float64{"torso_inner": 1},
			}},
		{ID: "a/tank_top", Name: "Tank top", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#202020"}},
			Properties: PropertiesDef{
				Requirements: []string{"Body"},
				Attributes:   []string{"Clothing", "Top"},
				OccupySlots:  map[string]float64{"torso_inner": 1},
			}},
		{ID: "a/sweater", Name: "Sweater", Size: "medium", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Wool", Default: "#7A2E2E"}},
			Properties: PropertiesDef{
				Requirements: []string{"Body"},
				Attributes:   []string{"Clothing", "Top"},
				OccupySlots:  map[string]float64{"torso_outer": 0.5},
			}},
		{ID: "a/jacket", Name: "Jacket", Size: "large", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#1A1A1A"}, {Name: "Zipper", Default: "#C0C0C0"}},
			Properties: PropertiesDef{
				Requirements: []string{"Body"},
				Attributes:   []string{"Clothing", "Top"},
				OccupySlots:  map[string]float64{"torso_outer": 1},
				BlockSlots:   []string{"torso_inner"},
			}},
		{ID: "a/pants", Name: "Pants", Size: "medium", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#2B3A67"}},
			Properties: PropertiesDef{
				Requirements: []string{"Legs"},
				Attributes:   []string{"Clothing", "Bottom"},
				OccupySlots:  map[string]float64{"legs": 1},
			}},
		{ID: "a/skirt", Name: "Skirt", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#2E2E7A"}},
			Properties: PropertiesDef{
				Requirements: []string{"Legs"},
				Attributes:   []string{"Clothing", "Bottom"},
				OccupySlots:  map[string]float64{"legs": 1},
			}},
		{ID: "a/socks", Name: "Socks", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#FFFFFF"}},
			Properties: PropertiesDef{
				Requirements: []string{"Feet"},
				Attributes:   []string{"Clothing"},
				OccupySlots:  map[string]float64{"feet_inner": 1},
			}},
		{ID: "a/shoes", Name: "Shoes", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#3B2416"}},
			Properties: PropertiesDef{
				Requirements: []string{"Feet"},
				Attributes:   []string{"Clothing", "Shoes"},
				OccupySlots:  map[string]float64{"feet_outer": 1},
				BlockSlots:   []string{"feet_inner"},
			}},
		{ID: "a/hat", Name: "Hat", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Felt", Default: "#444444"}},
			Properties: PropertiesDef{
				Requirements: []string{"Head", "!Hood"},
				OccupySlots:  map[string]float64{"head_top": 1},
			}},
		{ID: "a/glasses", Name: "Glasses", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Frame", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements: []string{"Eyes"},
				OccupySlots:  map[string]float64{"eyes": 0.5},
			}},

		// Accessories
		{ID: "a/necklace", Name: "Necklace", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Metal", Default: "#D4AF37"}},
			Properties: PropertiesDef{
				Requirements: []string{"Neck"},
				OccupySlots:  map[string]float64{"neck": 0.5},
			}},
		{ID: "a/collar", Name: "Collar", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#000000"}, {Name: "Ring", Default: "#C0C0C0"}},
			Properties: PropertiesDef{
				Requirements: []string{"Neck"},
				Attributes:   []string{"Collar"},
				OccupySlots:  map[string]float64{"neck": 0.5},
			},
			Modules: map[string]ModuleDef{
				"tag": {Type: "typed", Name: "Tag", Variants: []VariantDef{
					{ID: "none", Name: "No tag", Default: true},
					{ID: "heart", Name: "Heart tag"},
					{ID: "name", Name: "Name tag"},
				}},
				"lock": {Type: "lockSlot", Name: "Lock",
					LockedProperties: &PropertiesDef{BlockAddRemove: true, BlockModules: []string{"tag"}},
				},
			}},
		{ID: "a/hood", Name: "Hood", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#101010"}},
			Properties: PropertiesDef{
				Requirements: []string{"Head"},
				Attributes:   []string{"Hood"},
				Hides:        []string{"Eyes", "Mouth"},
				CoverSlots:   []string{"eyes", "mouth", "head_top"},
				OccupySlots:  map[string]float64{"head_cover": 1},
				Effects:      &EffectsDef{Blind: 1, Gag: 0.2},
			}},
		{ID: "a/blindfold", Name: "Blindfold", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Cloth", Default: "#101010"}},
			Properties: PropertiesDef{
				Requirements: []string{"Eyes"},
				Hides:        []string{"Eyes"},
				CoverSlots:   []string{"eyes"},
				Effects:      &EffectsDef{Blind: 1},
			}},
		{ID: "a/ball_gag", Name: "Ball gag", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Ball", Default: "#B01010"}, {Name: "Strap", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements: []string{"Mouth"},
				OccupySlots:  map[string]float64{"mouth": 1},
			},
			Modules: map[string]ModuleDef{
				"strap": {Type: "typed", Name: "Strap", Variants: []VariantDef{
					{ID: "loose", Name: "Loose", Default: true, Properties: PropertiesDef{Effects: &EffectsDef{Gag: 0.5}}},
					{ID: "tight", Name: "Tight", Properties: PropertiesDef{Effects: &EffectsDef{Gag: 1}}},
				}},
				"lock": {Type: "lockSlot", Name: "Lock",
					LockedProperties: &PropertiesDef{BlockAddRemove: true, BlockModules: []string{"strap"}},
				},
			}},

		// Restraints
		{ID: "a/wrist_cuffs", Name: "Wrist cuffs", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements: []string{"Hands"},
				Attributes:   []string{"Restraint"},
				OccupySlots:  map[string]float64{"wrists": 1},
			},
			Modules: map[string]ModuleDef{
				"chain": {Type: "typed", Name: "Chain", Variants: []VariantDef{
					{ID: "free", Name: "Unchained", Default: true},
					{ID: "front", Name: "Chained in front", Properties: PropertiesDef{
						PoseLimits: &PoseLimitsDef{Arms: &ArmLimitsDef{Position: StringList{"front"}}},
					}},
					{ID: "back", Name: "Chained behind", Properties: PropertiesDef{
						Effects:    &EffectsDef{BlockHands: true},
						PoseLimits: &PoseLimitsDef{Arms: &ArmLimitsDef{Position: StringList{"back", "back_below_hair"}}},
					}},
				}},
				"lock": {Type: "lockSlot", Name: "Lock", BlockSelf: true,
					LockedProperties: &PropertiesDef{BlockAddRemove: true, BlockSelfModules: []string{"chain"}},
				},
			}},
		{ID: "a/armbinder", Name: "Armbinder", Size: "medium", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements:       []string{"Arms"},
				Attributes:         []string{"Restraint"},
				OccupySlots:        map[string]float64{"wrists": 1, "arms": 1},
				BlockSelfAddRemove: true,
				Effects:            &EffectsDef{BlockHands: true},
				PoseLimits: &PoseLimitsDef{
					Arms:  &ArmLimitsDef{Position: StringList{"back"}, Fingers: StringList{"fist"}},
					Bones: map[string]BoneRange{"elbow_l": {{0, 10}}, "elbow_r": {{0, 10}}},
				},
			}},
		{ID: "a/mittens", Name: "Mittens", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements:       []string{"Hands"},
				OccupySlots:        map[string]float64{"hands": 1},
				BlockSelfAddRemove: true,
				Effects:            &EffectsDef{BlockHands: true},
				PoseLimits:         &PoseLimitsDef{Arms: &ArmLimitsDef{Fingers: StringList{"fist"}}},
			}},
		{ID: "a/ankle_cuffs", Name: "Ankle cuffs", Size: "small", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#000000"}},
			Properties: PropertiesDef{
				Requirements: []string{"Feet"},
				Attributes:   []string{"Restraint"},
				OccupySlots:  map[string]float64{"ankles": 1},
			},
			Modules: map[string]ModuleDef{
				"chain": {Type: "typed", Name: "Chain", Variants: []VariantDef{
					{ID: "free", Name: "Unchained", Default: true},
					{ID: "short", Name: "Short chain", Properties: PropertiesDef{
						PoseLimits: &PoseLimitsDef{Bones: map[string]BoneRange{
							"leg_l": {{-15, 15}},
							"leg_r": {{-15, 15}},
						}},
					}},
				}},
			}},
		{ID: "a/spreader_bar", Name: "Spreader bar", Size: "large", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Metal", Default: "#A0A0A0"}},
			Properties: PropertiesDef{
				Requirements: []string{"Feet"},
				Attributes:   []string{"Restraint"},
				PoseLimits: &PoseLimitsDef{Bones: map[string]BoneRange{
					"leg_l": {{30, 45}},
					"leg_r": {{30, 45}},
				}},
			}},

		// Containers
		{ID: "a/backpack", Name: "Backpack", Size: "large", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Canvas", Default: "#556B2F"}},
			Properties: PropertiesDef{
				Requirements: []string{"Body"},
				OccupySlots:  map[string]float64{"back": 1},
			},
			Modules: map[string]ModuleDef{
				"storage": {Type: "storage", Name: "Main pocket", MaxCount: 10, MaxAcceptedSize: "medium"},
			}},
		{ID: "a/handbag", Name: "Handbag", Size: "medium", HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Leather", Default: "#8B4513"}},
			Modules: map[string]ModuleDef{
				"storage": {Type: "storage", Name: "Bag", MaxCount: 5, MaxAcceptedSize: "small"},
			}},
		{ID: "a/crate", Name: "Crate", Size: "huge", Wearable: boolPtr(false), HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Wood", Default: "#A0522D"}},
			Modules: map[string]ModuleDef{
				"storage": {Type: "storage", Name: "Inside", MaxCount: 30, MaxAcceptedSize: "large"},
				"lock":    {Type: "lockSlot", Name: "Lock"},
			}},

		// Locks
		{ID: "a/padlock", Name: "Padlock", Size: "small", Wearable: boolPtr(false), Lock: true, HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Metal", Default: "#B8860B"}}},
		{ID: "a/combination_lock", Name: "Combination lock", Size: "small", Wearable: boolPtr(false), Lock: true, HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Metal", Default: "#708090"}}},

		// Misc
		{ID: "a/note", Name: "Note", Size: "small", Wearable: boolPtr(false), HasGraphics: true},
		{ID: "a/rope", Name: "Rope coil", Size: "small", Wearable: boolPtr(false), HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Rope", Default: "#D2B48C"}}},

		// Room devices
		{ID: "a/chair", Name: "Chair", Size: "huge", Wearable: boolPtr(false), HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Wood", Default: "#8B5A2B"}},
			RoomDevice:   &RoomDeviceDef{Slots: map[string]string{"seat": "a/chair_seat"}}},
		{ID: "a/chair_seat", Name: "Sitting on a chair", Size: "huge", WearablePart: true,
			Properties: PropertiesDef{
				PoseLimits: &PoseLimitsDef{
					Bones: map[string]BoneRange{"kneeling": {{0, 0}}},
					Options: []PoseLimitsDef{
						{Bones: map[string]BoneRange{"leg_l": {{80, 100}}, "leg_r": {{80, 100}}}},
						{Bones: map[string]BoneRange{"leg_l": {{60, 80}}, "leg_r": {{95, 110}}}},
					},
				},
			}},
		{ID: "a/stocks", Name: "Stocks", Size: "huge", Wearable: boolPtr(false), HasGraphics: true,
			Colorization: []ColorizationDef{{Name: "Wood", Default: "#6B4226"}},
			RoomDevice:   &RoomDeviceDef{Slots: map[string]string{"left": "a/stocks_left", "right": "a/stocks_right"}}},
		{ID: "a/stocks_left", Name: "Held in the stocks (left)", Size: "huge", WearablePart: true,
			Properties: stocksPartProperties()},
		{ID: "a/stocks_right", Name: "Held in the stocks (right)", Size: "huge", WearablePart: true,
			Properties: stocksPartProperties()},
	}
}

func stocksPartProperties() PropertiesDef {
	return PropertiesDef{
		BlockSelfAddRemove: true,
		Effects:            &EffectsDef{BlockHands: true},
		PoseLimits: &PoseLimitsDef{
			Arms:  &ArmLimitsDef{Position: StringList{"front"}, Rotation: StringList{"forward"}},
			Bones: map[string]BoneRange{"kneeling": {{0, 0}}, "leg_l": {{-10, 10}}, "leg_r": {{-10, 10}}},
		},
	}
}
