package tryon

import (
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
)

// AppID is the hosted endpoint that performs the try-on.
const AppID = "fashn/tryon"

type Category string

const (
	CategoryTops      Category = "tops"
	CategoryBottoms   Category = "bottoms"
	CategoryOnePieces Category = "one-pieces"
)

// Categories lists the accepted garment categories in display order.
var Categories = []Category{CategoryTops, CategoryBottoms, CategoryOnePieces}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", &ValidationError{Field: "category", Message: fmt.Sprintf("unknown garment category %q", s)}
}

// Label returns the human readable name shown in option pickers.
func (c Category) Label() string {
	switch c {
	case CategoryTops:
		return "Tops"
	case CategoryBottoms:
		return "Bottoms"
	case CategoryOnePieces:
		return "One Pieces"
	}
	return string(c)
}

type GarmentPhotoType string

const (
	GarmentPhotoAuto    GarmentPhotoType = "auto"
	GarmentPhotoModel   GarmentPhotoType = "model"
	GarmentPhotoFlatLay GarmentPhotoType = "flat-lay"
)

var GarmentPhotoTypes = []GarmentPhotoType{GarmentPhotoAuto, GarmentPhotoModel, GarmentPhotoFlatLay}

func ParseGarmentPhotoType(s string) (GarmentPhotoType, error) {
	for _, t := range GarmentPhotoTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "garment_photo_type", Message: fmt.Sprintf("unknown garment photo type %q", s)}
}

func (t GarmentPhotoType) Label() string {
	switch t {
	case GarmentPhotoAuto:
		return "Auto Detect"
	case GarmentPhotoModel:
		return "On Model"
	case GarmentPhotoFlatLay:
		return "Flat Lay"
	}
	return string(t)
}

// Option bounds accepted by the hosted model.
const (
	MinGuidanceScale = 1.0
	MaxGuidanceScale = 5.0
	MinTimesteps     = 10
	MaxTimesteps     = 100
	MinNumSamples    = 1
	MaxNumSamples    = 4

	DefaultSeed = 42
	maxRandSeed = 100000
)

// Options holds the generation settings sent alongside the two images.
// Field names on the wire are fixed by the hosted endpoint.
type Options struct {
	Category          Category         `json:"category"`
	GarmentPhotoType  GarmentPhotoType `json:"garment_photo_type"`
	NSFWFilter        bool             `json:"nsfw_filter"`
	CoverFeet         bool             `json:"cover_feet"`
	AdjustHands       bool             `json:"adjust_hands"`
	RestoreBackground bool             `json:"restore_background"`
	RestoreClothes    bool             `json:"restore_clothes"`
	LongTop           bool             `json:"long_top"`
	GuidanceScale     float64          `json:"guidance_scale"`
	Timesteps         int              `json:"timesteps"`
	Seed              int              `json:"seed"`
	NumSamples        int              `json:"num_samples"`
}

func DefaultOptions() Options {
	return Options{
		Category:         CategoryTops,
		GarmentPhotoType: GarmentPhotoAuto,
		NSFWFilter:       true,
		GuidanceScale:    2,
		Timesteps:        50,
		Seed:             DefaultSeed,
		NumSamples:       1,
	}
}

// Validate returns a *ValidationError for the first field outside of its accepted range.
func (o Options) Validate() error {
	if _, err := ParseCategory(string(o.Category)); err != nil {
		return err
	}
	if _, err := ParseGarmentPhotoType(string(o.GarmentPhotoType)); err != nil {
		return err
	}
	if o.GuidanceScale < MinGuidanceScale || o.GuidanceScale > MaxGuidanceScale {
		return &ValidationError{Field: "guidance_scale", Message: fmt.Sprintf("guidance scale must be between %g and %g", MinGuidanceScale, MaxGuidanceScale)}
	}
	if o.Timesteps < MinTimesteps || o.Timesteps > MaxTimesteps {
		return &ValidationError{Field: "timesteps", Message: fmt.Sprintf("timesteps must be between %d and %d", MinTimesteps, MaxTimesteps)}
	}
	if o.Seed < 0 {
		return &ValidationError{Field: "seed", Message: "seed must not be negative"}
	}
	if o.NumSamples < MinNumSamples || o.NumSamples > MaxNumSamples {
		return &ValidationError{Field: "num_samples", Message: fmt.Sprintf("number of results must be between %d and %d", MinNumSamples, MaxNumSamples)}
	}
	return nil
}

// RandomizeSeed replaces the seed with a random value in [0, 100000).
func (o *Options) RandomizeSeed() {
	o.Seed = rand.Intn(maxRandSeed)
}

// ParseSeed parses a seed typed by the user, falling back to DefaultSeed.
func ParseSeed(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return DefaultSeed
	}
	return n
}

// OptionsFromValues overlays form values onto the defaults. Absent keys keep their
// default; present boolean keys accept "on", "true" and "1".
func OptionsFromValues(v url.Values) (Options, error) {
	opts := DefaultOptions()
	var err error

	if s := v.Get("category"); s != "" {
		if opts.Category, err = ParseCategory(s); err != nil {
			return opts, err
		}
	}
	if s := v.Get("garment_photo_type"); s != "" {
		if opts.GarmentPhotoType, err = ParseGarmentPhotoType(s); err != nil {
			return opts, err
		}
	}

	bools := map[string]*bool{
		"nsfw_filter":        &opts.NSFWFilter,
		"cover_feet":         &opts.CoverFeet,
		"adjust_hands":       &opts.AdjustHands,
		"restore_background": &opts.RestoreBackground,
		"restore_clothes":    &opts.RestoreClothes,
		"long_top":           &opts.LongTop,
	}
	for key, dst := range bools {
		if _, ok := v[key]; ok {
			*dst = parseFormBool(v.Get(key))
		}
	}

	if s := v.Get("guidance_scale"); s != "" {
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return opts, &ValidationError{Field: "guidance_scale", Message: "guidance scale must be a number"}
		}
		opts.GuidanceScale = f
	}
	if s := v.Get("timesteps"); s != "" {
		n, perr := strconv.Atoi(s)
		if perr != nil {
			return opts, &ValidationError{Field: "timesteps", Message: "timesteps must be an integer"}
		}
		opts.Timesteps = n
	}
	if s, ok := v["seed"]; ok && len(s) > 0 {
		opts.Seed = ParseSeed(s[0])
	}
	if s := v.Get("num_samples"); s != "" {
		n, perr := strconv.Atoi(s)
		if perr != nil {
			return opts, &ValidationError{Field: "num_samples", Message: "number of results must be an integer"}
		}
		opts.NumSamples = n
	}

	return opts, opts.Validate()
}

func parseFormBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
