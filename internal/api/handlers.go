package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/morphovis/internal/index"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/morphservice"
	"github.com/starford/morphovis/internal/skeleton"
)

const maxBodyBytes = 10 << 20

// RunHook is notified of runs started through the API.
type RunHook func(run models.Run)

// Handler holds API route handlers.
type Handler struct {
	svc     *morphservice.Service
	runHook RunHook
}

// NewHandler creates a new Handler.
func NewHandler(svc *morphservice.Service, runHook RunHook) *Handler {
	return &Handler{svc: svc, runHook: runHook}
}

// morphologyPath extracts the library path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. mouse%2Fcell.swc).
func morphologyPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListMorphologies handles GET /api/morphologies.
//
//	@Summary		List indexed morphologies with pagination
//	@Tags			morphologies
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			sort	query		string	false	"Sort field"	Enums(path, label, samples, analyzed)
//	@Success		200		{object}	MorphologyListResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies [get]
func (h *Handler) ListMorphologies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("sort"))
	if err != nil {
		writeError(w, "list morphologies", err)
		return
	}
	writeJSON(w, http.StatusOK, MorphologyListResponse{Morphologies: items, Total: total})
}

// GetMorphology handles GET /api/morphologies/*.
//
//	@Summary		Get a morphology with its full analysis report
//	@Tags			morphologies
//	@Produce		json
//	@Param			path	path		string	true	"Library path"
//	@Success		200		{object}	MorphologyDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies/{path} [get]
func (h *Handler) GetMorphology(w http.ResponseWriter, r *http.Request) {
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	detail, err := h.svc.Get(r.Context(), p)
	if err != nil {
		writeError(w, "get morphology", err, slog.String("path", p))
		return
	}
	w.Header().Set("ETag", strconv.Quote(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// CreateMorphology handles POST /api/morphologies.
//
//	@Summary		Add an SWC file to the library
//	@Tags			morphologies
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMorphologyRequest	true	"Morphology to create"
//	@Success		201		{object}	MorphologyDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies [post]
func (h *Handler) CreateMorphology(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateMorphologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	detail, err := h.svc.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create morphology", err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// UpdateMorphology handles PUT /api/morphologies/*.
//
//	@Summary		Replace an SWC file with optimistic concurrency
//	@Tags			morphologies
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string					true	"Library path"
//	@Param			If-Match	header		string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateMorphologyRequest	true	"Updated content"
//	@Success		200			{object}	MorphologyDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies/{path} [put]
func (h *Handler) UpdateMorphology(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateMorphologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	detail, err := h.svc.Update(r.Context(), p, []byte(req.Content), ifMatch)
	if err != nil {
		writeError(w, "update morphology", err, slog.String("path", p))
		return
	}
	w.Header().Set("ETag", strconv.Quote(detail.Checksum))
	writeJSON(w, http.StatusOK, detail)
}

// DeleteMorphology handles DELETE /api/morphologies/*.
//
//	@Summary		Remove an SWC file from the library
//	@Tags			morphologies
//	@Param			path	path	string	true	"Library path"
//	@Success		204		"Morphology deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies/{path} [delete]
func (h *Handler) DeleteMorphology(w http.ResponseWriter, r *http.Request) {
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), p); err != nil {
		writeError(w, "delete morphology", err, slog.String("path", p))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveMorphology handles POST /api/morphologies/move.
//
//	@Summary		Rename an SWC file inside the library
//	@Tags			morphologies
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveMorphologyRequest	true	"Source and target paths"
//	@Success		200		{object}	MorphologyDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/morphologies/move [post]
func (h *Handler) MoveMorphology(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MoveMorphologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	detail, err := h.svc.Move(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, "move morphology", err, slog.String("from", req.From), slog.String("to", req.To))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Kernels handles GET /api/kernels.
//
//	@Summary		List the analysis catalog
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	KernelListResponse
//	@Security		BearerAuth
//	@Router			/kernels [get]
func (h *Handler) Kernels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KernelListResponse{Kernels: h.svc.Kernels(r.Context())})
}

// RunKernel handles GET /api/kernels/{variable}/*.
//
//	@Summary		Evaluate one kernel on a stored morphology
//	@Tags			analysis
//	@Produce		json
//	@Param			variable	path		string	true	"Catalog variable"
//	@Param			path		path		string	true	"Library path"
//	@Success		200			{object}	KernelResult
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/kernels/{variable}/{path} [get]
func (h *Handler) RunKernel(w http.ResponseWriter, r *http.Request) {
	variable := chi.URLParam(r, "variable")
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.RunKernel(r.Context(), p, variable)
	if err != nil {
		writeError(w, "run kernel", err, slog.String("path", p), slog.String("variable", variable))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Distributions handles GET /api/distributions.
//
//	@Summary		List the per-location distributions
//	@Tags			analysis
//	@Produce		json
//	@Success		200	{object}	DistributionListResponse
//	@Security		BearerAuth
//	@Router			/distributions [get]
func (h *Handler) Distributions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DistributionListResponse{Distributions: h.svc.Distributions(r.Context())})
}

// Distribution handles GET /api/distributions/{variable}/*.
//
//	@Summary		Per-segment, per-section or per-sample values of a stored morphology
//	@Tags			analysis
//	@Produce		json
//	@Param			variable	path		string	true	"Distribution variable"
//	@Param			path		path		string	true	"Library path"
//	@Success		200			{object}	DistributionResult
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/distributions/{variable}/{path} [get]
func (h *Handler) Distribution(w http.ResponseWriter, r *http.Request) {
	variable := chi.URLParam(r, "variable")
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	res, err := h.svc.Distribution(r.Context(), p, variable)
	if err != nil {
		writeError(w, "distribution", err, slog.String("path", p), slog.String("variable", variable))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analyze handles POST /api/analyze.
//
//	@Summary		Analyze raw SWC content without storing it
//	@Tags			analysis
//	@Accept			plain
//	@Produce		json
//	@Param			label	query		string	false	"Label reported back"
//	@Success		200		{object}	AnalysisReport
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}
	rep, err := h.svc.Analyze(r.Context(), r.URL.Query().Get("label"), data)
	if err != nil {
		writeError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Rank handles GET /api/rank.
//
//	@Summary		Rank indexed morphologies by a kernel value
//	@Tags			analysis
//	@Produce		json
//	@Param			variable	query		string	true	"Catalog variable"
//	@Param			limit		query		int		false	"Max results"
//	@Param			order		query		string	false	"Sort order"	Enums(desc, asc)
//	@Success		200			{object}	RankResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rank [get]
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	variable := q.Get("variable")
	if variable == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'variable' is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	ranked, err := h.svc.Rank(r.Context(), variable, limit, strings.EqualFold(q.Get("order"), "asc"))
	if err != nil {
		writeError(w, "rank", err, slog.String("variable", variable))
		return
	}
	writeJSON(w, http.StatusOK, RankResponse{Variable: variable, Results: ranked})
}

// Skeleton handles GET /api/skeleton/*.
//
//	@Summary		Reconstruct the polyline skeleton of a stored morphology
//	@Tags			skeleton
//	@Produce		json
//	@Produce		plain
//	@Param			path	path		string	true	"Library path"
//	@Param			mode	query		string	false	"Object grouping"	Enums(single, per-arbor)
//	@Param			format	query		string	false	"Output format"		Enums(json, obj)
//	@Success		200		{object}	SkeletonResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/skeleton/{path} [get]
func (h *Handler) Skeleton(w http.ResponseWriter, r *http.Request) {
	p := morphologyPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	format := strings.ToLower(q.Get("format"))
	if format != "" && format != "json" && format != "obj" {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be json or obj"))
		return
	}
	mode := skeleton.ParseMode(q.Get("mode"))

	objects, err := h.svc.Build(r.Context(), p, mode)
	if err != nil {
		writeError(w, "build skeleton", err, slog.String("path", p))
		return
	}

	if format == "obj" {
		name := strings.TrimSuffix(path.Base(p), path.Ext(p)) + ".obj"
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		if err := skeleton.WriteOBJ(w, objects); err != nil {
			slog.Error("write obj failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, SkeletonResponse{Path: p, Mode: mode.String(), Objects: objects})
}

// Sync handles POST /api/sync.
//
//	@Summary		Reconcile the index with the library on disk
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	models.Run
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Sync(r.Context(), index.TriggerManual)
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	if h.runHook != nil {
		h.runHook(run)
	}
	writeJSON(w, http.StatusOK, run)
}

// Runs handles GET /api/runs.
//
//	@Summary		List recent analysis runs
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Max results"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, "runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}
