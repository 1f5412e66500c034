package bundlecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/dressroom/internal/model"
)

func TestEncodeDecode_CharacterBundle(t *testing.T) {
	t.Parallel()

	in := model.CharacterAppearanceBundle{
		Items: []model.ItemBundle{
			{ID: "i/shirt", Asset: "a/shirt", Color: []string{"#AA0000"}},
			{ID: "i/collar", Asset: "a/collar", Modules: map[string]model.ModuleBundle{
				"ring": {Type: model.ModuleKindTyped, Variant: "ring"},
			}},
		},
		Pose: model.PoseBundle{
			Bones:   map[string]int{"leg_l": 10, "head": -3},
			LeftArm: model.ArmPose{Position: model.ArmPositionBack},
		},
		View: model.CharacterViewBack,
	}

	blob, err := Encode(in)
	require.NoError(t, err)

	var out model.CharacterAppearanceBundle
	require.NoError(t, Decode(blob, &out))
	assert.Equal(t, in, out)
}

func TestMarshal_Deterministic(t *testing.T) {
	t.Parallel()

	a := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}
	b := map[string]int{"d": 4, "c": 3, "b": 2, "a": 1}

	rawA, err := Marshal(a)
	require.NoError(t, err)
	rawB, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, rawA, rawB)

	digestA, err := Digest(a)
	require.NoError(t, err)
	digestB, err := Digest(b)
	require.NoError(t, err)
	assert.Equal(t, digestA, digestB)
	assert.Len(t, digestA, 64)
}

func TestEncodeWithDigest_MatchesDigest(t *testing.T) {
	t.Parallel()

	v := model.RoomInventoryBundle{Items: []model.ItemBundle{{ID: "i/box", Asset: "a/box"}}}
	enc, err := EncodeWithDigest(v)
	require.NoError(t, err)

	digest, err := Digest(v)
	require.NoError(t, err)
	assert.Equal(t, digest, enc.Digest)

	changed, err := Digest(model.RoomInventoryBundle{})
	require.NoError(t, err)
	assert.NotEqual(t, digest, changed)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	var out model.RoomInventoryBundle
	assert.ErrorIs(t, Decode(nil, &out), ErrEmpty)
	assert.Error(t, Decode([]byte("not zstd"), &out))
}
