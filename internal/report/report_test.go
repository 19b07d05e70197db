package report_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/quality"
	"codeberg.org/mutker/weatheragent/internal/report"
	"codeberg.org/mutker/weatheragent/internal/session"
	"codeberg.org/mutker/weatheragent/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func finalized() *session.Finalized {
	obs := []weather.Observation{
		{Timestamp: start, City: "Boston", Temperature: 20.5, Humidity: 50, Description: "clear sky", Target: "Boston,MA,US", Cycle: 1},
		{Timestamp: start.Add(time.Second), City: "Albany", Temperature: 60, Humidity: 40, Description: "haze", Target: "Albany,NY,US", Cycle: 1},
	}
	score := quality.Score{Completeness: 1, Consistency: 1, Accuracy: 0.8, Timeliness: 1, Aggregate: 0.95}

	return &session.Finalized{
		ID:           "6f1c",
		Targets:      []weather.CityTarget{"Boston,MA,US", "Albany,NY,US"},
		Observations: obs,
		Assessment:   quality.Assessment{Score: score},
		Score:        score,
		Distribution: quality.Distribution{Count: 2, Defined: true, Min: 20.5, Max: 60, Mean: 40.25},
		Anomalies: quality.AnomalyReport{
			Status: quality.AnomalyEvaluated,
			Flags: []quality.AnomalyFlag{
				{Index: 1, Observation: obs[1], Reason: "temperature outlier", Severity: quality.SeverityHigh, Deviations: 5.1},
			},
		},
		Outcomes: session.OutcomeSummary{Attempts: 4, Successes: 2, Failures: 2, SuccessRate: 0.5},
		Issues: []weather.Issue{
			{Category: weather.IssueFetchError, City: "Boston,MA,US", Cycle: 2, Detail: "timeout"},
			{Category: weather.IssueFetchError, City: "Albany,NY,US", Cycle: 2, Detail: "timeout"},
		},
		IssueCounts: []session.IssueCount{
			{Category: weather.IssueFetchError, Count: 2},
			{Category: weather.IssueValidationReject, Count: 0},
		},
		Recommendations: []string{"Review 1 temperature anomalies before using the dataset."},
		QualityHistory:  []float64{0.9, 1.0},
		Rejected:        1,
		Cycles:          2,
		FinalDelay:      4 * time.Second,
		StopReason:      session.StopMaxCycles,
		StartedAt:       start,
		FinishedAt:      start.Add(time.Minute),
	}
}

func source() report.Source {
	return report.Source{
		AgentVersion: "1.2.0",
		DataSources:  []string{"https://api.openweathermap.org/data/2.5/weather"},
		GeneratedAt:  start.Add(2 * time.Minute),
	}
}

func assembler(t *testing.T) (*report.FileAssembler, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := report.DefaultConfig()
	cfg.OutputDir = dir

	a, err := report.New(cfg, logger.Nop())
	require.NoError(t, err)

	return a, dir
}

func TestAssembleWritesArtifacts(t *testing.T) {
	a, dir := assembler(t)

	out, err := a.Assemble(context.Background(), finalized(), source())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", "raw", "collected_data.json"), out.RawData)
	assert.Equal(t, filepath.Join(dir, "data", "metadata", "dataset_metadata.json"), out.Metadata)
	assert.Equal(t, filepath.Join(dir, "reports", "quality_report.json"), out.QualityJSON)
	assert.Equal(t, filepath.Join(dir, "reports", "quality_report.txt"), out.QualityText)

	for _, p := range []string{out.RawData, out.Metadata, out.QualityJSON, out.QualityText} {
		assert.FileExists(t, p)
	}

	entries, err := os.ReadDir(filepath.Dir(out.QualityJSON))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestRawDataFieldOrder(t *testing.T) {
	a, _ := assembler(t)

	out, err := a.Assemble(context.Background(), finalized(), source())
	require.NoError(t, err)

	raw, err := os.ReadFile(out.RawData)
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 2)
	assert.Len(t, records[0], 5)
	assert.Equal(t, "Boston", records[0]["city"])

	text := string(raw)
	last := -1
	for _, key := range []string{`"timestamp"`, `"city"`, `"temperature"`, `"humidity"`, `"description"`} {
		i := strings.Index(text, key)
		require.Greater(t, i, last, key)
		last = i
	}
}

func TestMetadata(t *testing.T) {
	a, _ := assembler(t)

	out, err := a.Assemble(context.Background(), finalized(), source())
	require.NoError(t, err)

	raw, err := os.ReadFile(out.Metadata)
	require.NoError(t, err)

	var meta report.Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))

	assert.Equal(t, "6f1c", meta.CollectionInfo.SessionID)
	assert.Equal(t, 2, meta.CollectionInfo.TotalRecords)
	assert.Equal(t, "1.2.0", meta.CollectionInfo.AgentVersion)
	assert.Equal(t, "weatheragent", meta.CollectionInfo.Collector)
	assert.Equal(t, session.StopMaxCycles, meta.CollectionInfo.StopReason)
	assert.Equal(t, 4.0, meta.CollectionInfo.FinalDelaySec)
	assert.InDelta(t, 0.95, meta.QualityMetrics.AverageScore, 1e-9)
	assert.Equal(t, 2, meta.QualityMetrics.NumChecks)
	assert.Contains(t, meta.Variables, "temperature")
	assert.Equal(t, source().DataSources, meta.DataSources)
}

func TestQualityReport(t *testing.T) {
	a, _ := assembler(t)

	out, err := a.Assemble(context.Background(), finalized(), source())
	require.NoError(t, err)

	raw, err := os.ReadFile(out.QualityJSON)
	require.NoError(t, err)

	var rep report.QualityReport
	require.NoError(t, json.Unmarshal(raw, &rep))

	assert.Equal(t, 2, rep.Summary.TotalRecords)
	assert.Equal(t, 1, rep.Summary.Rejected)
	assert.Equal(t, 1, rep.Summary.AnomalyCount)
	assert.InDelta(t, 0.5, rep.Summary.CollectionSuccessRate, 1e-9)
	assert.InDelta(t, 0.95, rep.Summary.OverallQualityScore, 1e-9)
	assert.Equal(t, 60.0, rep.Distribution.Max)
	assert.Len(t, rep.Issues, 2)
	assert.Equal(t, finalized().IssueCounts, rep.IssueCounts)
}

func TestTextSummary(t *testing.T) {
	a, _ := assembler(t)

	out, err := a.Assemble(context.Background(), finalized(), source())
	require.NoError(t, err)

	raw, err := os.ReadFile(out.QualityText)
	require.NoError(t, err)
	text := string(raw)

	assert.True(t, strings.HasPrefix(text, "Quality Report\n"))
	assert.Contains(t, text, "total_records: 2\n")
	assert.Contains(t, text, "overall_quality_score: 0.950\n")
	assert.Contains(t, text, "- max: 60.0°C\n")
	assert.Contains(t, text, "- [high] Albany: temperature outlier\n")
	assert.Contains(t, text, "- fetch_error: 2\n")
	assert.Contains(t, text, "- validation_rejection: 0\n")
	assert.Contains(t, text, "- Review 1 temperature anomalies before using the dataset.\n")
}

func TestEmptySession(t *testing.T) {
	a, _ := assembler(t)

	f := &session.Finalized{ID: "empty", StopReason: session.StopAborted}
	out, err := a.Assemble(context.Background(), f, source())
	require.NoError(t, err)

	raw, err := os.ReadFile(out.RawData)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))

	text, err := os.ReadFile(out.QualityText)
	require.NoError(t, err)
	assert.Contains(t, string(text), "- no observations\n")
	assert.Contains(t, string(text), "Anomalies (")
}

func TestAssembleErrors(t *testing.T) {
	a, _ := assembler(t)

	_, err := a.Assemble(context.Background(), nil, source())
	assert.True(t, errors.HasCode(err, report.ErrNilSession))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Assemble(ctx, finalized(), source())
	assert.True(t, errors.HasCode(err, report.ErrWriteReport))

	_, err = report.New(report.Config{}, logger.Nop())
	assert.True(t, errors.HasCode(err, report.ErrInvalidConfig))
}
