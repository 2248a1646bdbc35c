package tryon

import "fmt"

// Input is the JSON body submitted to the try-on endpoint.
type Input struct {
	ModelImage   string `json:"model_image"`
	GarmentImage string `json:"garment_image"`
	Options
}

func NewInput(modelImageURL, garmentImageURL string, opts Options) *Input {
	return &Input{
		ModelImage:   modelImageURL,
		GarmentImage: garmentImageURL,
		Options:      opts,
	}
}

// Image is one generated picture as returned by the hosted service.
type Image struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// OutputError is the error object some responses carry in place of images.
type OutputError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// Output is the completed job's response body.
type Output struct {
	Images []Image      `json:"images"`
	Error  *OutputError `json:"error,omitempty"`
}

func (o *Output) URLs() []string {
	urls := make([]string, 0, len(o.Images))
	for _, img := range o.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

// Result is what a finished try-on hands back to the caller.
type Result struct {
	RequestID string   `json:"request_id"`
	URLs      []string `json:"urls"`
	Images    []Image  `json:"images"`
}

// DownloadName is the suggested file name for the result at index i.
func DownloadName(i int) string {
	return fmt.Sprintf("tryon-result-%d.png", i+1)
}
