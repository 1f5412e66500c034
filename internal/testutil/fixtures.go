package testutil

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/dressroom/internal/model"
)

// Fixtures содержит тестовые данные, общие для тестов directory и shard.
var Fixtures = struct {
	// Тестовый аккаунт
	Login    string
	Password string

	// Тестовые space и shard
	SpaceID model.SpaceID
	ShardID string
	Token   string
}{
	Login:    "testuser",
	Password: "testpass",
	SpaceID:  "lobby",
	ShardID:  "shard-test",
	Token:    "test-join-token",
}

// PasswordHash хеширует пароль с минимальной стоимостью bcrypt.
func PasswordHash(tb testing.TB, password string) string {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hashing password: %v", err)
	}
	return string(hash)
}

// Appearance возвращает bundle персонажа, надевшего items.
func Appearance(tb testing.TB, assets *model.AssetManager, items ...*model.Item) model.CharacterAppearanceBundle {
	tb.Helper()
	return Wear(tb, assets, "c0", items...).ExportToBundle()
}

// Room возвращает bundle инвентаря комнаты с items.
func Room(tb testing.TB, assets *model.AssetManager, items ...*model.Item) model.RoomInventoryBundle {
	tb.Helper()
	return model.NewRoomState(assets).ProduceWithItems(items).ExportToBundle()
}
