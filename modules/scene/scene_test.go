package scene

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDescriptor(t *testing.T) {
	video := Default(Video)
	assert.Equal(t, "Ultra HD 4K", video.Get("kualitasVideo"))
	assert.Equal(t, "", video.Get(FieldSubject))
	assert.Equal(t, "", video.Get(FieldSpokenPhrase))

	image := Default(Image)
	assert.Equal(t, "Fotorealistis, detail tinggi, 8k", image.Get("kualitasGambar"))
	assert.Equal(t, "1:1", image.Get(FieldAspectRatio))
	assert.False(t, image.Schema().Has(FieldSpokenPhrase))
	assert.False(t, video.Schema().Has(FieldAspectRatio))
}

func TestSchemaOrder(t *testing.T) {
	names := SchemaFor(Video).Names()
	require.Len(t, names, 21)
	assert.Equal(t, FieldSubject, names[0])
	assert.Equal(t, FieldAction, names[1])
	assert.Equal(t, "negativePrompt", names[len(names)-1])

	imageNames := SchemaFor(Image).Names()
	require.Len(t, imageNames, 20)
	assert.Equal(t, FieldAspectRatio, imageNames[len(imageNames)-1])
}

func TestDescriptorSet(t *testing.T) {
	d := Default(Image)

	require.NoError(t, d.Set(FieldSubject, "astronot"))
	assert.Equal(t, "astronot", d.Get(FieldSubject))

	require.NoError(t, d.Set(FieldAspectRatio, "16:9"))
	assert.Error(t, d.Set(FieldAspectRatio, "21:9"))
	assert.Equal(t, "16:9", d.Get(FieldAspectRatio))

	assert.Error(t, d.Set("mood", "tenang"))
	_, present := d.Map()["mood"]
	assert.False(t, present)
}

func TestCloneIsIndependent(t *testing.T) {
	d := Default(Video)
	c := d.Clone()
	require.NoError(t, c.Set(FieldSubject, "samurai"))

	assert.Equal(t, "", d.Get(FieldSubject))
	assert.False(t, d.Equal(c))
	assert.True(t, d.Equal(Default(Video)))
}

func TestMarshalJSONFollowsSchemaOrder(t *testing.T) {
	d := Default(Video)
	require.NoError(t, d.Set(FieldAction, "berlari"))

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	s := string(raw)
	assert.True(t, strings.HasPrefix(s, `{"subjek":"","aksi":"berlari"`))
	assert.Less(t, strings.Index(s, `"kalimatDiucapkan"`), strings.Index(s, `"negativePrompt"`))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 21)
}

func TestSpokenPhraseOnlyForVideo(t *testing.T) {
	v := Default(Video)
	require.NoError(t, v.Set(FieldSpokenPhrase, "Ayo pulang"))
	assert.Equal(t, "Ayo pulang", v.SpokenPhrase())

	assert.Equal(t, "", Default(Image).SpokenPhrase())
}

func TestParseVariant(t *testing.T) {
	cases := map[string]Variant{
		"video":   Video,
		"veo":     Video,
		" Image ": Image,
		"imagen":  Image,
	}
	for raw, want := range cases {
		got, err := ParseVariant(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseVariant("audio")
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	s := SchemaFor(Video)
	assert.Equal(t, "Subjek", s.Label(FieldSubject))
	assert.Equal(t, "unknown", s.Label("unknown"))
}
