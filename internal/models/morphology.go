// Package models defines the stored records of the morphology library.
package models

import "time"

// MorphologyMetadata is the lightweight listing entry for one SWC file.
type MorphologyMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Morphology is an indexed SWC file with its summary counts.
type Morphology struct {
	Path       string    `json:"path"`
	Label      string    `json:"label"`
	Checksum   string    `json:"checksum"`
	Samples    int       `json:"samples"`
	Apical     int       `json:"apical"`
	Axons      int       `json:"axons"`
	Basal      int       `json:"basal"`
	HasSoma    bool      `json:"has_soma"`
	RunID      string    `json:"run_id,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Result is one stored kernel value of a morphology. The per-type slices hold
// one value per arbor when the kernel is a per-arbor reduction.
type Result struct {
	Path     string    `json:"path"`
	Variable string    `json:"variable"`
	Value    float64   `json:"value"`
	Apical   []float64 `json:"apical,omitempty"`
	Axon     []float64 `json:"axon,omitempty"`
	Basal    []float64 `json:"basal,omitempty"`
}

// Run records one pass of the analyzer over the library.
type Run struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Analyzed   int       `json:"analyzed"`
	Removed    int       `json:"removed"`
	Failed     int       `json:"failed"`
}

// Ranked is one row of a ranking by kernel value.
type Ranked struct {
	Path  string  `json:"path"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}
