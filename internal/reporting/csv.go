package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crop-stress-lab/internal/domain"
)

// Output file names.
const (
	ReportFile          = "report.md"
	ReporterMetricsFile = "reporter_metrics.csv"
	TotalStressFile     = "total_stress.csv"
)

// RenderReporterCSV renders the reporter metrics as CSV string.
func RenderReporterCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("reporter,import_value,partners,mean_total_stress,corr_local_imports,corr_top_two,")
	sb.WriteString("variance_mean_ratio,variance_ratio,fraction_count_ratio,fraction_percentile_ratio\n")

	for _, m := range r.ReporterMetrics {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			m.Reporter,
			m.ImportValue,
			m.Partners,
			m.MeanTotalStress,
			m.CorrLocalImports,
			m.CorrTopTwo,
			m.VarianceMeanRatio,
			m.VarianceRatio,
			m.FractionCountRatio,
			m.FractionPercentileRatio,
		))
	}

	return sb.String()
}

// RenderTotalStressCSV renders every reporter's total stress, one row per sample.
func RenderTotalStressCSV(b *domain.StressBundle) string {
	var sb strings.Builder

	sb.WriteString("reporter,sample,total_stress\n")
	for _, s := range b.Summaries {
		for i, v := range s.TotalStress {
			sb.WriteString(fmt.Sprintf("%s,%d,%.9g\n", s.Reporter, i, v))
		}
	}

	return sb.String()
}

// WriteFiles writes the Markdown report and both CSVs to dir.
func WriteFiles(dir string, r *Report, b *domain.StressBundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	files := map[string]string{
		ReportFile:          RenderMarkdown(r),
		ReporterMetricsFile: RenderReporterCSV(r),
		TotalStressFile:     RenderTotalStressCSV(b),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
