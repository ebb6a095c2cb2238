package index

import "github.com/starford/morphovis/internal/models"

// MorphologyIndex defines the results store operations. Consumers depend on
// this interface rather than *DB so they can be tested with fakes.
type MorphologyIndex interface {
	UpsertMorphology(m models.Morphology, results []models.Result) error
	DeleteMorphology(path string) error
	GetChecksum(path string) (string, error)
	GetMorphology(path string) (*models.Morphology, error)
	Results(path string) ([]models.Result, error)
	ListMorphologies(limit, offset int, sort string) ([]models.Morphology, int, error)
	Rank(variable string, limit int, ascending bool) ([]models.Ranked, error)
	AllChecksums() (map[string]string, error)
	InsertRun(r models.Run) error
	Runs(limit int) ([]models.Run, error)
	Close() error
}

var _ MorphologyIndex = (*DB)(nil)
