// Package morphservice coordinates the morphology library, the results index,
// the kernel catalog and the skeleton builder.
package morphservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cogentcore.org/core/math32"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/apperr"
	"github.com/starford/morphovis/internal/index"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/morphology"
	"github.com/starford/morphovis/internal/parser"
	"github.com/starford/morphovis/internal/skeleton"
	"github.com/starford/morphovis/internal/storage"
)

var tracer = otel.Tracer("morphovis.morphservice")

const defaultListLimit = 50

// MorphologyDetail is the full representation of a stored morphology.
type MorphologyDetail struct {
	Path     string             `json:"path"`
	Label    string             `json:"label"`
	Content  string             `json:"content"`
	Checksum string             `json:"checksum"`
	Samples  int                `json:"samples"`
	Apical   int                `json:"apical"`
	Axons    int                `json:"axons"`
	Basal    int                `json:"basal"`
	HasSoma  bool               `json:"has_soma"`
	Comments []string           `json:"comments"`
	Bounds   math32.Box3        `json:"bounds"`
	Report   analysis.Report    `json:"report"`
	Indexed  *models.Morphology `json:"indexed,omitempty"`
	ReadAt   time.Time          `json:"read_at"`
}

// Config carries the service collaborators that are not storage or index.
type Config struct {
	Catalog  *analysis.Catalog
	Skeleton skeleton.Options
	Workers  int
	Logger   *slog.Logger
}

// Service coordinates storage, index, analysis and skeleton building.
type Service struct {
	store   storage.Provider
	db      *index.DB
	catalog *analysis.Catalog
	options skeleton.Options
	workers int
	logger  *slog.Logger
}

// NewService creates a new morphology service. A nil catalog means the
// default catalog.
func NewService(store storage.Provider, db *index.DB, cfg Config) *Service {
	if cfg.Catalog == nil {
		cfg.Catalog = analysis.DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:   store,
		db:      db,
		catalog: cfg.Catalog,
		options: cfg.Skeleton,
		workers: cfg.Workers,
		logger:  cfg.Logger,
	}
}

// Catalog returns the kernel catalog the service evaluates.
func (s *Service) Catalog() *analysis.Catalog { return s.catalog }

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "morphservice."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func checkPath(path string) error {
	if path == "" || !storage.IsMorphologyFile(strings.ToLower(path)) {
		return fmt.Errorf("morphservice: path %q must end with %s: %w", path, storage.Extension, apperr.ErrInvalidInput)
	}
	return nil
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("morphservice: read %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func parse(path string, data []byte) (*parser.Result, error) {
	res, err := parser.Parse(data, index.Label(path))
	if err != nil {
		return nil, fmt.Errorf("morphservice: %w: %w", apperr.ErrInvalidInput, err)
	}
	return res, nil
}

// Get reads a morphology from storage, analyzes it and attaches its index row.
func (s *Service) Get(ctx context.Context, path string) (detail *MorphologyDetail, err error) {
	_, span := startSpan(ctx, "Get", attribute.String("path", path))
	defer func() { endSpan(span, err) }()

	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, data)
}

// Create writes a new SWC file after checking it parses, then indexes it.
func (s *Service) Create(ctx context.Context, path string, content []byte) (detail *MorphologyDetail, err error) {
	_, span := startSpan(ctx, "Create", attribute.String("path", path))
	defer func() { endSpan(span, err) }()

	if err := checkPath(path); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, fmt.Errorf("morphservice: create %s: %w", path, apperr.ErrAlreadyExists)
	}
	if _, err := parse(path, content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Update replaces an SWC file with optimistic concurrency: a non-empty ifMatch
// must equal the checksum of the current content.
func (s *Service) Update(ctx context.Context, path string, content []byte, ifMatch string) (detail *MorphologyDetail, err error) {
	_, span := startSpan(ctx, "Update", attribute.String("path", path))
	defer func() { endSpan(span, err) }()

	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != storage.Checksum(existing) {
		return nil, fmt.Errorf("morphservice: update %s: %w", path, apperr.ErrConflict)
	}
	if _, err := parse(path, content); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildDetail(path, content)
}

// Delete removes a morphology from storage and index.
func (s *Service) Delete(ctx context.Context, path string) (err error) {
	_, span := startSpan(ctx, "Delete", attribute.String("path", path))
	defer func() { endSpan(span, err) }()

	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("morphservice: delete %s: %w", path, apperr.ErrNotFound)
		}
		return err
	}
	return s.db.DeleteMorphology(path)
}

// Move renames a morphology and re-indexes it under the new path.
func (s *Service) Move(ctx context.Context, from, to string) (detail *MorphologyDetail, err error) {
	_, span := startSpan(ctx, "Move", attribute.String("from", from), attribute.String("to", to))
	defer func() { endSpan(span, err) }()

	if err := checkPath(to); err != nil {
		return nil, err
	}
	if err := s.store.Move(from, to); err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("morphservice: move %s: %w", from, apperr.ErrNotFound)
		case errors.Is(err, os.ErrExist):
			return nil, fmt.Errorf("morphservice: move to %s: %w", to, apperr.ErrAlreadyExists)
		}
		return nil, err
	}
	if err := s.db.DeleteMorphology(from); err != nil {
		return nil, err
	}
	data, err := s.read(to)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(to, data); err != nil {
		return nil, err
	}
	return s.buildDetail(to, data)
}

// List returns one page of indexed morphologies.
func (s *Service) List(ctx context.Context, limit, offset int, sort string) (items []models.Morphology, total int, err error) {
	_, span := startSpan(ctx, "List")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = defaultListLimit
	}
	items, total, err = s.db.ListMorphologies(limit, max(offset, 0), sort)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(items), total, nil
}

// Analyze runs the catalog over raw SWC content without storing it.
func (s *Service) Analyze(ctx context.Context, label string, data []byte) (report *analysis.Report, err error) {
	_, span := startSpan(ctx, "Analyze", attribute.String("label", label), attribute.Int("bytes", len(data)))
	defer func() { endSpan(span, err) }()

	res, err := parser.Parse(data, label)
	if err != nil {
		return nil, fmt.Errorf("morphservice: %w: %w", apperr.ErrInvalidInput, err)
	}
	rep := s.report(res.Morphology)
	return &rep, nil
}

// RunKernel evaluates a single catalog item on a stored morphology.
func (s *Service) RunKernel(ctx context.Context, path, variable string) (result *analysis.Result, err error) {
	_, span := startSpan(ctx, "RunKernel", attribute.String("path", path), attribute.String("variable", variable))
	defer func() { endSpan(span, err) }()

	item, ok := s.catalog.Lookup(variable)
	if !ok {
		return nil, fmt.Errorf("morphservice: kernel %q: %w", variable, apperr.ErrUnknownKernel)
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	res, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	kernelEvaluations.WithLabelValues(variable).Inc()
	r := item.Evaluate(res.Morphology)
	return &r, nil
}

// Distribution evaluates a per-location distribution on a stored morphology.
func (s *Service) Distribution(ctx context.Context, path, variable string) (result *analysis.DistributionResult, err error) {
	_, span := startSpan(ctx, "Distribution", attribute.String("path", path), attribute.String("variable", variable))
	defer func() { endSpan(span, err) }()

	d, ok := analysis.LookupDistribution(variable)
	if !ok {
		return nil, fmt.Errorf("morphservice: distribution %q: %w", variable, apperr.ErrUnknownKernel)
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	res, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	r := d.Evaluate(res.Morphology)
	return &r, nil
}

// Distributions lists the per-location distributions.
func (s *Service) Distributions(_ context.Context) []analysis.Distribution {
	return analysis.Distributions()
}

// Build reconstructs the skeleton of a stored morphology with the configured
// builder options.
func (s *Service) Build(ctx context.Context, path string, mode skeleton.Mode) (objects []*skeleton.Object, err error) {
	_, span := startSpan(ctx, "Build", attribute.String("path", path), attribute.String("mode", mode.String()))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		skeletonBuilds.WithLabelValues(mode.String(), outcome).Inc()
		endSpan(span, err)
	}()

	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	res, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	return s.BuildMorphology(res.Morphology, mode)
}

// BuildMorphology reconstructs the skeleton of an in-memory morphology.
func (s *Service) BuildMorphology(m *morphology.Morphology, mode skeleton.Mode) ([]*skeleton.Object, error) {
	b, err := skeleton.NewBuilder(m, s.options, skeleton.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	objects, err := b.Build(mode)
	if err != nil {
		if errors.Is(err, skeleton.ErrUnsupportedMethod) {
			return nil, fmt.Errorf("morphservice: %w: %w", apperr.ErrInvalidInput, err)
		}
		return nil, err
	}
	lines := 0
	for _, obj := range objects {
		if obj.Kind != skeleton.KindBevel {
			lines += len(obj.PolyLines)
		}
	}
	skeletonPolylines.Observe(float64(lines))
	return objects, nil
}

// Rank returns the morphologies with the largest (or smallest) stored value of
// variable.
func (s *Service) Rank(ctx context.Context, variable string, limit int, ascending bool) (ranked []models.Ranked, err error) {
	_, span := startSpan(ctx, "Rank", attribute.String("variable", variable))
	defer func() { endSpan(span, err) }()

	if _, ok := s.catalog.Lookup(variable); !ok {
		return nil, fmt.Errorf("morphservice: rank %q: %w", variable, apperr.ErrUnknownKernel)
	}
	if limit <= 0 {
		limit = 10
	}
	ranked, err = s.db.Rank(variable, limit, ascending)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(ranked), nil
}

// Kernels lists the catalog items.
func (s *Service) Kernels(_ context.Context) []analysis.Item {
	return s.catalog.Items()
}

// Runs returns the most recent analysis runs.
func (s *Service) Runs(_ context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.db.Runs(limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(runs), nil
}

// Sync brings the index up to date with the library.
func (s *Service) Sync(ctx context.Context, trigger string) (run models.Run, err error) {
	ctx, span := startSpan(ctx, "Sync", attribute.String("trigger", trigger))
	defer func() { endSpan(span, err) }()

	return index.Sync(ctx, s.db, s.store, s.catalog, index.SyncOptions{Workers: s.workers, Trigger: trigger}, s.logger)
}

// IndexFile analyzes data and upserts it into the index outside any run.
func (s *Service) IndexFile(path string, data []byte) error {
	row, results, err := index.Analyze(s.catalog, path, data)
	if err != nil {
		return err
	}
	return s.db.UpsertMorphology(row, results)
}

func (s *Service) report(m *morphology.Morphology) analysis.Report {
	start := time.Now()
	rep := s.catalog.Run(m)
	reportDuration.Observe(time.Since(start).Seconds())
	return rep
}

// buildDetail constructs a MorphologyDetail from raw data without re-reading the file.
func (s *Service) buildDetail(path string, data []byte) (*MorphologyDetail, error) {
	res, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	m := res.Morphology
	detail := &MorphologyDetail{
		Path:     path,
		Label:    m.Label,
		Content:  string(data),
		Checksum: storage.Checksum(data),
		Samples:  res.Samples,
		Apical:   len(m.Apical),
		Axons:    len(m.Axons),
		Basal:    len(m.Basal),
		HasSoma:  m.Soma != nil,
		Comments: nonNilSlice(res.Comments),
		Bounds:   m.Bounds(),
		Report:   s.report(m),
		ReadAt:   time.Now().UTC(),
	}
	indexed, err := s.db.GetMorphology(path)
	switch {
	case err == nil:
		detail.Indexed = indexed
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return detail, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
