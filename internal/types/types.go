package types

import "time"

// CaptionSegment is a timed chunk of narration shown as one on-screen caption.
type CaptionSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type AudioAsset struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
}

type VideoArtifact struct {
	Path      string  `json:"path"`
	SizeBytes int64   `json:"size_bytes"`
	Duration  float64 `json:"duration"`
}

// Canvas is the flat-colored full frame captions are composited onto.
type Canvas struct {
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	Background string `json:"background" yaml:"background"`
}

func DefaultCanvas() Canvas {
	return Canvas{Width: 1920, Height: 1080, Background: "#00FF00"}
}

type CaptionStyle struct {
	FontName     string `json:"font_name" yaml:"font_name"`
	FontSize     int    `json:"font_size" yaml:"font_size"`
	Bold         bool   `json:"bold" yaml:"bold"`
	Fill         string `json:"fill" yaml:"fill"`
	Outline      string `json:"outline" yaml:"outline"`
	OutlineWidth int    `json:"outline_width" yaml:"outline_width"`
	// Margin is the horizontal inset on each side; captions wrap at width - 2*Margin.
	Margin int `json:"margin" yaml:"margin"`
}

func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		FontName:     "Arial",
		FontSize:     60,
		Bold:         true,
		Fill:         "#FFFFFF",
		Outline:      "#000000",
		OutlineWidth: 2,
		Margin:       50,
	}
}

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from one status to another.
// pending -> error covers a job that never made it onto the work queue.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusError
	case StatusProcessing:
		return to == StatusCompleted || to == StatusError
	default:
		return false
	}
}

type RenderJob struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	SourceRef   string    `json:"source_ref"`
	Title       string    `json:"title"`
	InputText   string    `json:"input_text"`
	Status      JobStatus `json:"status"`
	OutputPath  string    `json:"output_path,omitempty"`
	DurationSec float64   `json:"duration_sec,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Thread struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body,omitempty"`
	Comments []Comment `json:"comments"`
}

type Comment struct {
	Body string `json:"body"`
}
