package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Crop Stress Report: %s\n\n", r.Experiment))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Reporters: %d | Partners: %d | Samples: %d\n\n", r.Reporters, r.Partners, r.Samples))

	// Run
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", r.RunID))
	sb.WriteString(fmt.Sprintf("| Config Hash | %s |\n", r.ConfigHash))
	sb.WriteString(fmt.Sprintf("| Climate Model | %s |\n", r.GCM))
	sb.WriteString(fmt.Sprintf("| Product | %s |\n", r.Product))
	sb.WriteString(fmt.Sprintf("| From Cache | %t |\n", r.CacheHit))
	sb.WriteString("\n")

	// Reporter Metrics
	sb.WriteString("## Reporter Metrics\n\n")
	if len(r.ReporterMetrics) > 0 {
		sb.WriteString("| Reporter | Name | Imports | Partners | Mean Stress | Corr Local | Corr Top2 | VarMean | VarRatio | FracCount | FracP75 |\n")
		sb.WriteString("|----------|------|---------|----------|-------------|------------|-----------|---------|----------|-----------|---------|\n")
		for _, m := range r.ReporterMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				m.Reporter, m.Name, m.ImportValue, m.Partners, m.MeanTotalStress,
				m.CorrLocalImports, m.CorrTopTwo,
				m.VarianceMeanRatio, m.VarianceRatio, m.FractionCountRatio, m.FractionPercentileRatio))
		}
	} else {
		sb.WriteString("No reporters.\n")
	}
	sb.WriteString("\n")

	// Most Exposed
	sb.WriteString("## Most Exposed Reporters\n\n")
	if len(r.MostExposed) > 0 {
		sb.WriteString("| Reporter | Name | Mean Stress | Top Partner | Share |\n")
		sb.WriteString("|----------|------|-------------|-------------|-------|\n")
		for _, e := range r.MostExposed {
			top := "-"
			if e.TopPartner != "" {
				top = fmt.Sprintf("%s (%s)", e.TopPartnerName, e.TopPartner)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %s | %.2f |\n",
				e.Reporter, e.Name, e.MeanTotalStress, top, e.TopPartnerShare))
		}
	} else {
		sb.WriteString("No exposure data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
