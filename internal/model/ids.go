package model

import (
	"regexp"
	"strings"
)

// AssetID — идентификатор ассета в каталоге ("a/...").
type AssetID string

// ItemID — идентификатор предмета ("i/..."), уникален в пределах персонажа или комнаты.
type ItemID string

// CharacterID — идентификатор персонажа ("c123").
type CharacterID string

// SpaceID — идентификатор space (комната на shard).
type SpaceID string

var characterIDPattern = regexp.MustCompile(`^c[1-9][0-9]{0,15}$`)

// Valid reports whether the asset id has the "a/" prefix and a non-empty name.
func (id AssetID) Valid() bool {
	return strings.HasPrefix(string(id), "a/") && len(id) > 2
}

// Valid reports whether the item id has the "i/" prefix and a non-empty name.
func (id ItemID) Valid() bool {
	return strings.HasPrefix(string(id), "i/") && len(id) > 2
}

// Valid reports whether the character id matches c<digits>.
func (id CharacterID) Valid() bool {
	return characterIDPattern.MatchString(string(id))
}
