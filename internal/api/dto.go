package api

import (
	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/morphservice"
	"github.com/starford/morphovis/internal/skeleton"
)

// CreateMorphologyRequest is the request body for adding an SWC file.
type CreateMorphologyRequest struct {
	Path    string `json:"path" example:"mouse/pyramidal.swc" validate:"required"`
	Content string `json:"content" example:"1 1 0 0 0 5 -1\n2 3 0 5 0 1 1" validate:"required"`
}

// UpdateMorphologyRequest is the request body for replacing an SWC file.
type UpdateMorphologyRequest struct {
	Content string `json:"content" example:"1 1 0 0 0 5 -1\n2 3 0 5 0 1 1" validate:"required"`
}

// MoveMorphologyRequest is the request body for renaming an SWC file.
type MoveMorphologyRequest struct {
	From string `json:"from" example:"pyramidal.swc" validate:"required"`
	To   string `json:"to" example:"mouse/pyramidal.swc" validate:"required"`
}

// MorphologyDetail is the full morphology response type (aliased from the domain layer).
type MorphologyDetail = morphservice.MorphologyDetail

// MorphologyListResponse wraps paginated morphology listings.
type MorphologyListResponse struct {
	Morphologies []models.Morphology `json:"morphologies" validate:"required"`
	Total        int                 `json:"total" example:"42" validate:"required"`
}

// KernelListResponse wraps the analysis catalog.
type KernelListResponse struct {
	Kernels []analysis.Item `json:"kernels" validate:"required"`
}

// KernelResult is a single kernel evaluation.
type KernelResult = analysis.Result

// DistributionListResponse lists the per-location distributions.
type DistributionListResponse struct {
	Distributions []analysis.Distribution `json:"distributions" validate:"required"`
}

// DistributionResult is one distribution evaluated on a morphology.
type DistributionResult = analysis.DistributionResult

// AnalysisReport is the outcome of running the whole catalog.
type AnalysisReport = analysis.Report

// RankResponse wraps a ranking by one kernel value.
type RankResponse struct {
	Variable string          `json:"variable" example:"total-length" validate:"required"`
	Results  []models.Ranked `json:"results" validate:"required"`
}

// SkeletonResponse wraps the reconstructed skeleton objects.
type SkeletonResponse struct {
	Path    string             `json:"path" example:"mouse/pyramidal.swc" validate:"required"`
	Mode    string             `json:"mode" example:"single" validate:"required"`
	Objects []*skeleton.Object `json:"objects" validate:"required"`
}

// RunListResponse wraps recent analysis runs.
type RunListResponse struct {
	Runs []models.Run `json:"runs" validate:"required"`
}

// UploadResponse is returned after a successful SWC upload.
type UploadResponse struct {
	Path     string `json:"path" example:"uploads/pyramidal.swc" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	Checksum string `json:"checksum" example:"abc123..." validate:"required"`
}
