// Package reporting renders stress bundles as Markdown and CSV.
package reporting

import "time"

// Report is the rendered view of one experiment run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Experiment  string
	ConfigHash  string
	GCM         string
	Product     string
	Samples     int
	CacheHit    bool

	Reporters int
	Partners  int

	// One row per reporter, sorted by reporter code
	ReporterMetrics []ReporterMetricRow

	// Reporters ranked by mean total stress, highest first
	MostExposed []ExposureRow
}

// ReporterMetricRow is one row of the reporter metrics table.
type ReporterMetricRow struct {
	Reporter                string
	Name                    string
	ImportValue             float64
	Partners                int
	MeanTotalStress         float64
	CorrLocalImports        float64
	CorrTopTwo              float64
	VarianceMeanRatio       float64
	VarianceRatio           float64
	FractionCountRatio      float64
	FractionPercentileRatio float64
}

// ExposureRow names the partner contributing most to a reporter's stress.
type ExposureRow struct {
	Reporter        string
	Name            string
	MeanTotalStress float64
	TopPartner      string // empty when nothing was written
	TopPartnerName  string
	TopPartnerShare float64 // mean traded stress of TopPartner / mean total stress
}
