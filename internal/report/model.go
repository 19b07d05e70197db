package report

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/session"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Source describes the run environment that is not part of the session.
type Source struct {
	AgentVersion string
	DataSources  []string
	GeneratedAt  time.Time
}

type Metadata struct {
	CollectionInfo    CollectionInfo    `json:"collection_info"`
	DataSources       []string          `json:"data_sources"`
	QualityMetrics    QualityMetrics    `json:"quality_metrics"`
	ProcessingHistory []string          `json:"processing_history"`
	Variables         map[string]string `json:"variables"`
}

type CollectionInfo struct {
	CollectionDate time.Time            `json:"collection_date"`
	AgentVersion   string               `json:"agent_version"`
	Collector      string               `json:"collector"`
	SessionID      string               `json:"session_id"`
	TotalRecords   int                  `json:"total_records"`
	Cities         []weather.CityTarget `json:"cities"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     time.Time            `json:"finished_at"`
	Cycles         int                  `json:"cycles"`
	StopReason     session.StopReason   `json:"stop_reason"`
	FinalDelaySec  float64              `json:"final_delay_seconds"`
}

type QualityMetrics struct {
	AverageScore float64       `json:"average_score"`
	NumChecks    int           `json:"num_checks"`
	FinalScore   quality.Score `json:"final_score"`
}

type QualityReport struct {
	Summary          Summary                    `json:"summary"`
	Scores           quality.Score              `json:"quality_scores"`
	Completeness     quality.CompletenessDetail `json:"completeness_analysis"`
	Consistency      quality.ConsistencyDetail  `json:"consistency_analysis"`
	Timeliness       quality.TimelinessDetail   `json:"timeliness_analysis"`
	Distribution     quality.Distribution       `json:"data_distribution"`
	AnomalyDetection quality.AnomalyReport      `json:"anomaly_detection"`
	Outcomes         session.OutcomeSummary     `json:"collection_outcomes"`
	IssueCounts      []session.IssueCount       `json:"issues_encountered"`
	Issues           []weather.Issue            `json:"issue_log"`
	Recommendations  []string                   `json:"recommendations"`
}

type Summary struct {
	TotalRecords          int     `json:"total_records"`
	Attempts              int     `json:"total_requests"`
	Failures              int     `json:"failed_requests"`
	Rejected              int     `json:"rejected_records"`
	CollectionSuccessRate float64 `json:"collection_success_rate"`
	OverallQualityScore   float64 `json:"overall_quality_score"`
	AnomalyCount          int     `json:"anomaly_count"`
}

var processingHistory = []string{
	"collected data",
	"validated data",
	"scored data quality",
	"stored raw JSON",
}

var variables = map[string]string{
	"timestamp":   "ISO 8601 timestamp when the observation was collected",
	"city":        "Name of the city",
	"temperature": "Air temperature in degrees Celsius",
	"humidity":    "Relative humidity (%)",
	"description": "Short description of weather conditions",
}

// BuildMetadata derives the dataset metadata document.
func BuildMetadata(f *session.Finalized, cfg Config, src Source) Metadata {
	return Metadata{
		CollectionInfo: CollectionInfo{
			CollectionDate: src.GeneratedAt,
			AgentVersion:   src.AgentVersion,
			Collector:      cfg.Collector,
			SessionID:      f.ID,
			TotalRecords:   len(f.Observations),
			Cities:         f.Targets,
			StartedAt:      f.StartedAt,
			FinishedAt:     f.FinishedAt,
			Cycles:         f.Cycles,
			StopReason:     f.StopReason,
			FinalDelaySec:  f.FinalDelay.Seconds(),
		},
		DataSources: src.DataSources,
		QualityMetrics: QualityMetrics{
			AverageScore: f.AverageQuality(),
			NumChecks:    len(f.QualityHistory),
			FinalScore:   f.Score,
		},
		ProcessingHistory: processingHistory,
		Variables:         variables,
	}
}

// BuildQualityReport derives the quality report document.
func BuildQualityReport(f *session.Finalized) QualityReport {
	issues := f.Issues
	if issues == nil {
		issues = []weather.Issue{}
	}

	return QualityReport{
		Summary: Summary{
			TotalRecords:          len(f.Observations),
			Attempts:              f.Outcomes.Attempts,
			Failures:              f.Outcomes.Failures,
			Rejected:              f.Rejected,
			CollectionSuccessRate: f.Outcomes.SuccessRate,
			OverallQualityScore:   f.Score.Aggregate,
			AnomalyCount:          len(f.Anomalies.Flags),
		},
		Scores:           f.Score,
		Completeness:     f.Assessment.Completeness,
		Consistency:      f.Assessment.Consistency,
		Timeliness:       f.Assessment.Timeliness,
		Distribution:     f.Distribution,
		AnomalyDetection: f.Anomalies,
		Outcomes:         f.Outcomes,
		IssueCounts:      f.IssueCounts,
		Issues:           issues,
		Recommendations:  f.Recommendations,
	}
}
