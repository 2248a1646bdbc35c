package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/richinsley/tryon2go/tryon"
)

//go:embed web/index.html
var webFS embed.FS

var indexTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

type indexData struct {
	Defaults          tryon.Options
	Categories        []optionChoice
	GarmentPhotoTypes []optionChoice
	SampleCounts      []int
	Toggles           []toggle
	MinGuidance       float64
	MaxGuidance       float64
	MinTimesteps      int
	MaxTimesteps      int
}

type toggle struct {
	Name    string
	Label   string
	Checked bool
}

func newIndexData() indexData {
	opts := buildOptionsResponse(0)
	d := opts.Defaults
	data := indexData{
		Defaults:          d,
		Categories:        opts.Categories,
		GarmentPhotoTypes: opts.GarmentPhotoTypes,
		MinGuidance:       tryon.MinGuidanceScale,
		MaxGuidance:       tryon.MaxGuidanceScale,
		MinTimesteps:      tryon.MinTimesteps,
		MaxTimesteps:      tryon.MaxTimesteps,
		Toggles: []toggle{
			{"nsfw_filter", "NSFW Filter", d.NSFWFilter},
			{"cover_feet", "Cover Feet", d.CoverFeet},
			{"adjust_hands", "Adjust Hands", d.AdjustHands},
			{"restore_background", "Restore Background", d.RestoreBackground},
			{"restore_clothes", "Keep Other Clothes", d.RestoreClothes},
			{"long_top", "Long Top", d.LongTop},
		},
	}
	for n := tryon.MinNumSamples; n <= tryon.MaxNumSamples; n++ {
		data.SampleCounts = append(data.SampleCounts, n)
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, newIndexData()); err != nil {
		slog.Error("Rendering index page failed", "error", err)
	}
}
