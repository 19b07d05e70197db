package report

import (
	"io"
	"text/template"
)

var summaryTemplate = template.Must(template.New("summary").Parse(`Quality Report
========================================

session: {{ .Meta.CollectionInfo.SessionID }}
stop reason: {{ .Meta.CollectionInfo.StopReason }}
cycles: {{ .Meta.CollectionInfo.Cycles }}

total_records: {{ .Report.Summary.TotalRecords }}
total_requests: {{ .Report.Summary.Attempts }}
failed_requests: {{ .Report.Summary.Failures }}
rejected_records: {{ .Report.Summary.Rejected }}
collection_success_rate: {{ printf "%.3f" .Report.Summary.CollectionSuccessRate }}
overall_quality_score: {{ printf "%.3f" .Report.Summary.OverallQualityScore }}

Quality scores:
- completeness: {{ printf "%.3f" .Report.Scores.Completeness }}
- consistency: {{ printf "%.3f" .Report.Scores.Consistency }}
- accuracy: {{ printf "%.3f" .Report.Scores.Accuracy }}
- timeliness: {{ printf "%.3f" .Report.Scores.Timeliness }}

Temperature distribution:
{{- with .Report.Distribution }}
{{- if .Defined }}
- min: {{ printf "%.1f" .Min }}°C
- max: {{ printf "%.1f" .Max }}°C
- mean: {{ printf "%.1f" .Mean }}°C
{{- else }}
- no observations
{{- end }}
{{- end }}

Anomalies ({{ .Report.AnomalyDetection.Status }}):
{{- range .Report.AnomalyDetection.Flags }}
- [{{ .Severity }}] {{ .Observation.City }}: {{ .Reason }}
{{- else }}
- none
{{- end }}

Issues encountered:
{{- range .Report.IssueCounts }}
- {{ .Category }}: {{ .Count }}
{{- end }}

Recommendations:
{{- range .Report.Recommendations }}
- {{ . }}
{{- end }}
`))

// WriteSummary renders the plain-text quality summary.
func WriteSummary(w io.Writer, meta Metadata, rep QualityReport) error {
	return summaryTemplate.Execute(w, struct {
		Meta   Metadata
		Report QualityReport
	}{meta, rep})
}
