package tryon

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, CategoryTops, opts.Category)
	assert.Equal(t, GarmentPhotoAuto, opts.GarmentPhotoType)
	assert.True(t, opts.NSFWFilter)
	assert.False(t, opts.CoverFeet)
	assert.False(t, opts.AdjustHands)
	assert.False(t, opts.RestoreBackground)
	assert.False(t, opts.RestoreClothes)
	assert.False(t, opts.LongTop)
	assert.Equal(t, 2.0, opts.GuidanceScale)
	assert.Equal(t, 50, opts.Timesteps)
	assert.Equal(t, 42, opts.Seed)
	assert.Equal(t, 1, opts.NumSamples)
	assert.NoError(t, opts.Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"category", func(o *Options) { o.Category = "hats" }, "category"},
		{"photo type", func(o *Options) { o.GarmentPhotoType = "mannequin" }, "garment_photo_type"},
		{"guidance low", func(o *Options) { o.GuidanceScale = 0.9 }, "guidance_scale"},
		{"guidance high", func(o *Options) { o.GuidanceScale = 5.1 }, "guidance_scale"},
		{"timesteps low", func(o *Options) { o.Timesteps = 5 }, "timesteps"},
		{"timesteps high", func(o *Options) { o.Timesteps = 101 }, "timesteps"},
		{"negative seed", func(o *Options) { o.Seed = -1 }, "seed"},
		{"no samples", func(o *Options) { o.NumSamples = 0 }, "num_samples"},
		{"too many samples", func(o *Options) { o.NumSamples = 5 }, "num_samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateAcceptsBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.GuidanceScale = MaxGuidanceScale
	opts.Timesteps = MinTimesteps
	opts.NumSamples = MaxNumSamples
	opts.Seed = 0
	assert.NoError(t, opts.Validate())
}

func TestRandomizeSeed(t *testing.T) {
	opts := DefaultOptions()
	for i := 0; i < 100; i++ {
		opts.RandomizeSeed()
		assert.GreaterOrEqual(t, opts.Seed, 0)
		assert.Less(t, opts.Seed, 100000)
	}
}

func TestParseSeed(t *testing.T) {
	assert.Equal(t, 1234, ParseSeed("1234"))
	assert.Equal(t, 7, ParseSeed(" 7 "))
	assert.Equal(t, DefaultSeed, ParseSeed(""))
	assert.Equal(t, DefaultSeed, ParseSeed("abc"))
	assert.Equal(t, DefaultSeed, ParseSeed("0"))
}

func TestOptionsFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("category", "one-pieces")
	v.Set("garment_photo_type", "flat-lay")
	v.Set("nsfw_filter", "false")
	v.Set("long_top", "on")
	v.Set("guidance_scale", "3.5")
	v.Set("timesteps", "30")
	v.Set("seed", "99")
	v.Set("num_samples", "4")

	opts, err := OptionsFromValues(v)
	require.NoError(t, err)

	assert.Equal(t, CategoryOnePieces, opts.Category)
	assert.Equal(t, GarmentPhotoFlatLay, opts.GarmentPhotoType)
	assert.False(t, opts.NSFWFilter)
	assert.True(t, opts.LongTop)
	assert.False(t, opts.CoverFeet)
	assert.Equal(t, 3.5, opts.GuidanceScale)
	assert.Equal(t, 30, opts.Timesteps)
	assert.Equal(t, 99, opts.Seed)
	assert.Equal(t, 4, opts.NumSamples)
}

func TestOptionsFromValuesKeepsDefaults(t *testing.T) {
	opts, err := OptionsFromValues(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
}

func TestOptionsFromValuesErrors(t *testing.T) {
	for _, v := range []url.Values{
		{"category": {"shoes"}},
		{"guidance_scale": {"lots"}},
		{"timesteps": {"7.5"}},
		{"num_samples": {"9"}},
	} {
		_, err := OptionsFromValues(v)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "values %v", v)
	}
}

func TestInputWireFormat(t *testing.T) {
	in := NewInput("https://cdn.example/model.png", "https://cdn.example/garment.jpg", DefaultOptions())

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))

	expected := []string{
		"model_image", "garment_image", "category", "garment_photo_type", "nsfw_filter",
		"cover_feet", "adjust_hands", "restore_background", "restore_clothes", "long_top",
		"guidance_scale", "timesteps", "seed", "num_samples",
	}
	assert.Len(t, fields, len(expected))
	for _, k := range expected {
		assert.Contains(t, fields, k)
	}
	assert.Equal(t, "https://cdn.example/model.png", fields["model_image"])
	assert.Equal(t, "tops", fields["category"])
	assert.Equal(t, true, fields["nsfw_filter"])
	assert.Equal(t, float64(42), fields["seed"])
}

func TestOutputURLsAndDownloadName(t *testing.T) {
	var out Output
	require.NoError(t, json.Unmarshal([]byte(`{"images":[{"url":"https://a/1.png","width":864,"height":1296},{"url":"https://a/2.png"}]}`), &out))

	assert.Equal(t, []string{"https://a/1.png", "https://a/2.png"}, out.URLs())
	assert.Equal(t, 864, out.Images[0].Width)
	assert.Equal(t, "tryon-result-1.png", DownloadName(0))
	assert.Equal(t, "tryon-result-3.png", DownloadName(2))
}
