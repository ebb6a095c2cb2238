package index

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/morphovis/internal/analysis"
	"github.com/starford/morphovis/internal/models"
	"github.com/starford/morphovis/internal/parser"
	"github.com/starford/morphovis/internal/storage"
)

// Label derives a morphology label from its library path: the file stem.
func Label(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Analyze parses an SWC file and runs catalog over it, returning the row and
// results ready for UpsertMorphology.
func Analyze(catalog *analysis.Catalog, p string, data []byte) (models.Morphology, []models.Result, error) {
	res, err := parser.Parse(data, Label(p))
	if err != nil {
		return models.Morphology{}, nil, fmt.Errorf("index: analyze %s: %w", p, err)
	}
	m := res.Morphology

	row := models.Morphology{
		Path:       p,
		Label:      m.Label,
		Checksum:   storage.Checksum(data),
		Samples:    res.Samples,
		Apical:     len(m.Apical),
		Axons:      len(m.Axons),
		Basal:      len(m.Basal),
		HasSoma:    m.Soma != nil,
		AnalyzedAt: time.Now().UTC(),
	}

	report := catalog.Run(m)
	results := make([]models.Result, 0, len(report.Results))
	for _, r := range report.Results {
		out := models.Result{Path: p, Variable: r.Variable, Value: r.Value}
		if r.Breakdown != nil {
			out.Apical = r.Breakdown.Apical
			out.Axon = r.Breakdown.Axon
			out.Basal = r.Breakdown.Basal
		}
		results = append(results, out)
	}
	return row, results, nil
}

// indexFile analyzes data and upserts it into the DB under runID.
func indexFile(db *DB, catalog *analysis.Catalog, p, runID string, data []byte) error {
	start := time.Now()
	row, results, err := Analyze(catalog, p, data)
	if err != nil {
		return err
	}
	row.RunID = runID
	if err := db.UpsertMorphology(row, results); err != nil {
		return err
	}
	fileAnalysisDuration.Observe(time.Since(start).Seconds())
	return nil
}
