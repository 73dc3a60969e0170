package memory

import "crop-stress-lab/internal/storage"

// NewStores returns a fresh set of in-memory stores.
func NewStores() storage.Stores {
	return storage.Stores{
		Runs:      NewExperimentRunStore(),
		Summaries: NewReporterSummaryStore(),
		Cells:     NewStressCellStore(),
		Totals:    NewTotalStressStore(),
	}
}
