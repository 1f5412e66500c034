// Package protocol описывает JSON-сообщения между клиентом и shard:
// конверт {type, seq, payload}, payload каждого типа, проверку входящих
// сообщений по JSON Schema и каталог объяснений причин отказа.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/udisondev/dressroom/internal/game/appearance"
	"github.com/udisondev/dressroom/internal/game/restriction"
	"github.com/udisondev/dressroom/internal/model"
)

// Клиентские сообщения.
const (
	TypeHello      = "hello"
	TypeAction     = "action"
	TypeQuery      = "query"
	TypePermission = "permission"
	TypeSafemode   = "safemode"
	TypePing       = "ping"
)

// Серверные сообщения.
const (
	TypeWelcome      = "welcome"
	TypeActionResult = "actionResult"
	TypeStateUpdate  = "stateUpdate"
	TypeAck          = "ack"
	TypeError        = "error"
	TypePong         = "pong"
)

// Коды ошибок сообщения error.
const (
	ErrCodeBadRequest       = "badRequest"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeSpaceNotFound    = "spaceNotFound"
	ErrCodeNotJoined        = "notJoined"
	ErrCodeAssetsChanged    = "assetsChanged"
	ErrCodeTooManyOverrides = "tooManyOverrides"
	ErrCodeInternal         = "internal"
)

var knownCodes = map[string]bool{
	ErrCodeBadRequest:       true,
	ErrCodeUnauthorized:     true,
	ErrCodeSpaceNotFound:    true,
	ErrCodeNotJoined:        true,
	ErrCodeAssetsChanged:    true,
	ErrCodeTooManyOverrides: true,
	ErrCodeInternal:         true,
}

// IsKnownCode reports whether code is one of the error codes above.
func IsKnownCode(code string) bool { return knownCodes[code] }

// Envelope — конверт любого сообщения. Seq ответа равен seq запроса.
type Envelope struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hello — первое сообщение клиента после подключения.
type Hello struct {
	CharacterID  model.CharacterID `json:"characterId"`
	SpaceID      model.SpaceID     `json:"spaceId"`
	Token        string            `json:"token"`
	AssetsDigest string            `json:"assetsDigest,omitempty"`
}

// Welcome — ответ на hello: полный снимок space.
type Welcome struct {
	CharacterID  model.CharacterID       `json:"characterId"`
	SpaceID      model.SpaceID           `json:"spaceId"`
	AssetsDigest string                  `json:"assetsDigest"`
	State        model.GlobalStateBundle `json:"state"`
}

// ActionResult — ответ на action и query.
type ActionResult struct {
	OK          bool                          `json:"ok"`
	DryRun      bool                          `json:"dryRun,omitempty"`
	Problem     *appearance.Problem           `json:"problem,omitempty"`
	Explanation string                        `json:"explanation,omitempty"`
	Pending     []appearance.PermissionPrompt `json:"pending,omitempty"`
}

// NewActionResult builds the wire result of an appearance action.
func NewActionResult(res appearance.Result, dryRun bool) ActionResult {
	out := ActionResult{OK: res.OK(), DryRun: dryRun, Problem: res.Problem, Pending: res.Pending}
	if res.Problem != nil {
		out.Explanation = Explain(res.Problem.Reason)
	}
	return out
}

// StateUpdate — изменившиеся части space после commit.
type StateUpdate struct {
	Characters map[model.CharacterID]model.CharacterAppearanceBundle `json:"characters,omitempty"`
	Removed    []model.CharacterID                                   `json:"removed,omitempty"`
	Room       *model.RoomInventoryBundle                            `json:"room,omitempty"`
}

// NewStateUpdate экспортирует изменившиеся части state.
func NewStateUpdate(state *model.GlobalState, changes model.StateChanges) StateUpdate {
	u := StateUpdate{Removed: changes.Removed}
	if len(changes.Characters) > 0 {
		u.Characters = make(map[model.CharacterID]model.CharacterAppearanceBundle, len(changes.Characters))
		for _, id := range changes.Characters {
			u.Characters[id] = state.Character(id).ExportToBundle()
		}
	}
	if changes.Room {
		room := state.Room().ExportToBundle()
		u.Room = &room
	}
	return u
}

// Permission меняет настройку разрешений отправителя. Без CharacterID
// меняется значение группы по умолчанию; с CharacterID — override для этого
// персонажа, пустой Permission удаляет override.
type Permission struct {
	Group       restriction.PermissionGroup `json:"group"`
	CharacterID model.CharacterID           `json:"characterId,omitempty"`
	Permission  restriction.PermissionType  `json:"permission,omitempty"`
}

// Safemode включает или выключает safemode отправителя.
type Safemode struct {
	Enabled bool `json:"enabled"`
}

// Error — отказ на уровне протокола (не действия).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode собирает конверт с payload.
func Encode(typ string, seq uint64, payload any) ([]byte, error) {
	env := Envelope{Type: typ, Seq: seq}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", typ, err)
		}
		env.Payload = raw
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", typ, err)
	}
	return out, nil
}
