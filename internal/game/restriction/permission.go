package restriction

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/udisondev/dressroom/internal/model"
)

// DefaultMaxOverrides — лимит персональных overrides на одну группу.
const DefaultMaxOverrides = 100

// ErrTooManyOverrides — превышен лимит overrides группы.
var ErrTooManyOverrides = errors.New("too many permission overrides")

// PermissionType — решение для действия другого персонажа.
type PermissionType string

const (
	PermissionYes    PermissionType = "yes"
	PermissionNo     PermissionType = "no"
	PermissionPrompt PermissionType = "prompt"
)

// Valid reports whether the value is a known permission type.
func (p PermissionType) Valid() bool {
	switch p {
	case PermissionYes, PermissionNo, PermissionPrompt:
		return true
	}
	return false
}

// PermissionGroup — группа действий, которые другие персонажи совершают над персонажем.
type PermissionGroup string

const (
	GroupInteract PermissionGroup = "interact"
	GroupPose     PermissionGroup = "pose"
)

// PermissionGroups returns all groups in a stable order.
func PermissionGroups() []PermissionGroup {
	return []PermissionGroup{GroupInteract, GroupPose}
}

// Роли аккаунта, обходящие permission config (но не ограничения предметов).
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
)

func roleBypass(roles []string) bool {
	return slices.Contains(roles, RoleAdmin) || slices.Contains(roles, RoleDeveloper)
}

// PermissionConfig — значение по умолчанию и персональные overrides одной группы.
type PermissionConfig struct {
	Default   PermissionType                       `json:"default" cbor:"default"`
	Overrides map[model.CharacterID]PermissionType `json:"overrides,omitempty" cbor:"overrides,omitempty"`
}

// Resolve возвращает решение для actor.
func (c PermissionConfig) Resolve(actor model.CharacterID) PermissionType {
	if p, ok := c.Overrides[actor]; ok {
		return p
	}
	if !c.Default.Valid() {
		return PermissionNo
	}
	return c.Default
}

// PermissionSet — настройки всех групп одного персонажа. Значение immutable:
// изменения возвращают новый PermissionSet.
type PermissionSet map[PermissionGroup]PermissionConfig

// DefaultPermissions возвращает настройки нового персонажа.
func DefaultPermissions() PermissionSet {
	return PermissionSet{
		GroupInteract: {Default: PermissionYes},
		GroupPose:     {Default: PermissionPrompt},
	}
}

// Resolve возвращает решение для actor в группе group.
// Неизвестная группа запрещена.
func (s PermissionSet) Resolve(group PermissionGroup, actor model.CharacterID, roles []string) PermissionType {
	if roleBypass(roles) {
		return PermissionYes
	}
	cfg, ok := s[group]
	if !ok {
		return PermissionNo
	}
	return cfg.Resolve(actor)
}

// WithDefault returns a copy with the group default replaced.
func (s PermissionSet) WithDefault(group PermissionGroup, p PermissionType) (PermissionSet, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid permission type %q", p)
	}
	out := s.clone()
	cfg := out[group]
	cfg.Default = p
	out[group] = cfg
	return out, nil
}

// WithOverride возвращает копию с override для actor.
// Пустое значение p удаляет override.
//
// Returns:
//   - error: ErrTooManyOverrides если группа уже содержит limit overrides
func (s PermissionSet) WithOverride(group PermissionGroup, actor model.CharacterID, p PermissionType, limit int) (PermissionSet, error) {
	if p != "" && !p.Valid() {
		return nil, fmt.Errorf("invalid permission type %q", p)
	}
	out := s.clone()
	cfg := out[group]
	overrides := maps.Clone(cfg.Overrides)
	if overrides == nil {
		overrides = map[model.CharacterID]PermissionType{}
	}
	if p == "" {
		delete(overrides, actor)
	} else {
		if _, exists := overrides[actor]; !exists && len(overrides) >= limit {
			return nil, fmt.Errorf("%w: group %s allows %d", ErrTooManyOverrides, group, limit)
		}
		overrides[actor] = p
	}
	cfg.Overrides = overrides
	out[group] = cfg
	return out, nil
}

func (s PermissionSet) clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for group, cfg := range s {
		out[group] = PermissionConfig{Default: cfg.Default, Overrides: maps.Clone(cfg.Overrides)}
	}
	return out
}
