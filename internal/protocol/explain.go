package protocol

// explanations — человекочитаемые тексты для кодов отказа.
var explanations = map[string]string{
	// structural
	"invalidAction":       "The action is malformed.",
	"targetNotFound":      "The target character is not in this space.",
	"itemNotFound":        "The item does not exist.",
	"containerNotFound":   "The container does not exist.",
	"notAContainer":       "The item has no storage or lock slot to put things into.",
	"unknownAsset":        "The asset is not in the catalog.",
	"invalidItemId":       "The item id is malformed or already taken.",
	"invalidModuleAction": "The module does not support this action.",
	"unknownVariant":      "The module has no such variant.",
	"unknownPreset":       "There is no such pose preset.",
	"unknownBone":         "The bone does not exist or cannot be set this way.",
	"notRoomDevice":       "The item is not a room device.",
	"unknownDeviceSlot":   "The room device has no such slot.",
	"deviceSlotOccupied":  "Someone already occupies this slot.",
	"notInDevice":         "The character does not occupy this slot.",

	// permission
	"blockedHands":              "Your hands are restrained.",
	"blockedAddRemove":          "This item cannot be added or removed right now.",
	"blockedModule":             "This item cannot be changed right now.",
	"covered":                   "The item is covered by another item.",
	"blockedSlot":               "Something worn blocks this slot.",
	"locked":                    "The item is locked.",
	"safemodeOther":             "The target is in safe mode.",
	"inRoomDevice":              "The character is bound to a room device.",
	"deviceWearablePart":        "Room device parts can only be changed through the device.",
	"bodyModificationForbidden": "Only you can change your body.",
	"permissionDenied":          "The target did not allow this.",
	"permissionPrompt":          "The target must approve this first.",

	// constraint
	"duplicateId":          "Two items share the same id.",
	"containerCycle":       "An item cannot be put inside itself.",
	"containerTooDeep":     "Containers are nested too deep.",
	"slotOverflow":         "Too many items in the same slot.",
	"missingRequirement":   "Something this item needs is not worn.",
	"forbiddenAttribute":   "Something worn does not allow this item.",
	"storageFull":          "The storage is full.",
	"itemTooLarge":         "The item does not fit into the storage.",
	"invalidLockItem":      "Only locks can go into a lock slot.",
	"lockSlotEmptyLocked":  "A locked slot has no lock.",
	"notWearable":          "The item cannot be worn.",
	"bodypartInStorage":    "Body parts cannot be stored.",
	"bodypartOrder":        "Body parts must stay below worn items.",
	"bodypartMissing":      "A required body part is missing.",
	"bodypartDuplicate":    "Only one body part of this kind is allowed.",
	"poseInvalid":          "The pose is out of range.",
	"poseLimitsInfeasible": "Worn items restrict the pose in ways that cannot all be met.",
	"invalidModule":        "A module is in an invalid state.",
	"colorInvalid":         "The color is invalid.",
	"deviceLinkBroken":     "A room device part lost its device.",
	"tooManyItems":         "There are too many items.",
}

const genericExplanation = "The action is not allowed."

// Explain возвращает текст для кода отказа; для неизвестного кода — общий текст.
func Explain(reason string) string {
	if s, ok := explanations[reason]; ok {
		return s
	}
	return genericExplanation
}
