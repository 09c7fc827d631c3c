package report

import (
	"fmt"
	"time"
)

// Report is the structured document fed to the renderer.
type Report struct {
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Meta      []Field   `json:"meta,omitempty"`
	Sections  []Section `json:"sections"`
}

// Field is one "Label: value" line in the report header.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Section is a titled block of partially cleaned result text.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is a rendered report plus layout facts about it.
type Document struct {
	Bytes        []byte
	PageCount    int
	Image        *Placement
	ImageMissing bool
}

// Placement is where the report image landed, in millimetres.
type Placement struct {
	Page int
	X    float64
	Y    float64
	W    float64
	H    float64
}

// RenderError means the PDF byte stream could not be produced.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render report: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
