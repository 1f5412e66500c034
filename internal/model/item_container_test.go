package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/model"
	"github.com/udisondev/dressroom/internal/testutil"
)

func ids(items []*model.Item) []model.ItemID {
	out := make([]model.ItemID, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID())
	}
	return out
}

func TestAddItem_NestedIsCopyOnWrite(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	backpack := testutil.NewItem(t, assets, "i/pack", testutil.AssetBackpack)
	shirt := testutil.NewItem(t, assets, "i/shirt", testutil.AssetShirt)
	original := []*model.Item{backpack, shirt}

	pocket := model.ItemContainerPath{{Item: "i/pack", Module: "storage"}}
	tag := testutil.NewItem(t, assets, "i/tag", testutil.AssetTag)

	updated, err := model.AddItem(original, pocket, tag, "")
	require.NoError(t, err)

	// The original list and backpack are untouched.
	assert.Same(t, backpack, original[0])
	assert.Empty(t, backpack.Module("storage").(*model.StorageModule).Items())

	assert.NotSame(t, backpack, updated[0])
	assert.Same(t, shirt, updated[1], "unchanged siblings are shared")

	got := model.GetItem(updated, model.ItemPath{Container: pocket, ItemID: "i/tag"})
	require.NotNil(t, got)
	assert.Same(t, tag, got)

	path, ok := model.FindItemPath(updated, "i/tag")
	require.True(t, ok)
	assert.Equal(t, pocket, path.Container)
	assert.Equal(t, "i/pack:storage/i/tag", path.String())
}

func TestAddItem_InsertBefore(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	items := []*model.Item{
		testutil.NewItem(t, assets, "i/a", testutil.AssetTag),
		testutil.NewItem(t, assets, "i/b", testutil.AssetTag),
	}
	out, err := model.AddItem(items, nil, testutil.NewItem(t, assets, "i/c", testutil.AssetTag), "i/b")
	require.NoError(t, err)
	assert.Equal(t, []model.ItemID{"i/a", "i/c", "i/b"}, ids(out))

	_, err = model.AddItem(items, nil, testutil.NewItem(t, assets, "i/d", testutil.AssetTag), "i/missing")
	assert.ErrorIs(t, err, model.ErrItemNotFound)
}

func TestContainerPath_Errors(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	collar := testutil.NewItem(t, assets, "i/collar", testutil.AssetCollar)
	items := []*model.Item{collar}
	tag := testutil.NewItem(t, assets, "i/tag", testutil.AssetTag)

	_, err := model.AddItem(items, model.ItemContainerPath{{Item: "i/nope", Module: "storage"}}, tag, "")
	assert.ErrorIs(t, err, model.ErrContainerNotFound)

	_, err = model.AddItem(items, model.ItemContainerPath{{Item: "i/collar", Module: "ring"}}, tag, "")
	assert.ErrorIs(t, err, model.ErrNotAContainer)

	_, _, err = model.RemoveItem(items, model.ItemPath{ItemID: "i/nope"})
	assert.ErrorIs(t, err, model.ErrItemNotFound)

	assert.Nil(t, model.GetItem(items, model.ItemPath{ItemID: "i/nope"}))
}

func TestMoveItem_ClampsShift(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	items := []*model.Item{
		testutil.NewItem(t, assets, "i/a", testutil.AssetTag),
		testutil.NewItem(t, assets, "i/b", testutil.AssetTag),
		testutil.NewItem(t, assets, "i/c", testutil.AssetTag),
	}

	tests := []struct {
		name  string
		item  model.ItemID
		shift int
		want  []model.ItemID
	}{
		{"forward one", "i/a", 1, []model.ItemID{"i/b", "i/a", "i/c"}},
		{"far forward", "i/a", 10, []model.ItemID{"i/b", "i/c", "i/a"}},
		{"far backward", "i/c", -10, []model.ItemID{"i/c", "i/a", "i/b"}},
		{"no-op", "i/b", 0, []model.ItemID{"i/a", "i/b", "i/c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := model.MoveItem(items, model.ItemPath{ItemID: tt.item}, tt.shift)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(out))
		})
	}
	assert.Equal(t, []model.ItemID{"i/a", "i/b", "i/c"}, ids(items))
}

func TestRemoveAndUpdateItem(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	items := []*model.Item{
		testutil.NewItem(t, assets, "i/shirt", testutil.AssetShirt),
		testutil.NewItem(t, assets, "i/tag", testutil.AssetTag),
	}

	out, removed, err := model.RemoveItem(items, model.ItemPath{ItemID: "i/shirt"})
	require.NoError(t, err)
	assert.Equal(t, model.ItemID("i/shirt"), removed.ID())
	assert.Equal(t, []model.ItemID{"i/tag"}, ids(out))

	out, err = model.UpdateItem(items, model.ItemPath{ItemID: "i/shirt"}, func(i *model.Item) (*model.Item, error) {
		return i.WithColor([]string{"#FF0000"}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"#FF0000"}, out[0].Color())
	assert.Equal(t, []string{"#FFFFFF"}, items[0].Color())
}

func TestCountItems(t *testing.T) {
	t.Parallel()
	assets := testutil.Catalog(t)

	items := []*model.Item{testutil.NewItem(t, assets, "i/pack", testutil.AssetBackpack)}
	items, err := model.AddItem(items, model.ItemContainerPath{{Item: "i/pack", Module: "storage"}},
		testutil.NewItem(t, assets, "i/tag", testutil.AssetTag), "")
	require.NoError(t, err)
	assert.Equal(t, 2, model.CountItems(items))
}
