// Package report writes the artifacts of a finished collection session.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/session"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Assembler renders a finalized session into artifacts.
type Assembler interface {
	Assemble(ctx context.Context, f *session.Finalized, src Source) (Artifacts, error)
}

// Artifacts lists the files written for one session.
type Artifacts struct {
	RawData     string
	Metadata    string
	QualityJSON string
	QualityText string
}

type FileAssembler struct {
	cfg Config
	log logger.Logger
}

func New(cfg Config, log logger.Logger) (*FileAssembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &FileAssembler{cfg: cfg, log: log}, nil
}

func (a *FileAssembler) paths() Artifacts {
	root := a.cfg.OutputDir
	return Artifacts{
		RawData:     filepath.Join(root, "data", "raw", "collected_data.json"),
		Metadata:    filepath.Join(root, "data", "metadata", "dataset_metadata.json"),
		QualityJSON: filepath.Join(root, "reports", "quality_report.json"),
		QualityText: filepath.Join(root, "reports", "quality_report.txt"),
	}
}

// Assemble writes the raw observations, dataset metadata and the quality
// report in JSON and plain text.
func (a *FileAssembler) Assemble(ctx context.Context, f *session.Finalized, src Source) (Artifacts, error) {
	errFactory := errors.New()

	if f == nil {
		return Artifacts{}, errFactory.New(ErrNilSession)
	}

	out := a.paths()
	meta := BuildMetadata(f, a.cfg, src)
	rep := BuildQualityReport(f)

	observations := f.Observations
	if observations == nil {
		observations = []weather.Observation{}
	}

	var text bytes.Buffer
	if err := WriteSummary(&text, meta, rep); err != nil {
		return Artifacts{}, errFactory.Wrap(ErrWriteReport, err)
	}

	steps := []struct {
		path string
		data func() ([]byte, error)
	}{
		{out.RawData, func() ([]byte, error) { return marshal(observations) }},
		{out.Metadata, func() ([]byte, error) { return marshal(meta) }},
		{out.QualityJSON, func() ([]byte, error) { return marshal(rep) }},
		{out.QualityText, func() ([]byte, error) { return text.Bytes(), nil }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return Artifacts{}, errFactory.Wrap(ErrWriteReport, err)
		}

		data, err := step.data()
		if err != nil {
			return Artifacts{}, errFactory.Wrap(ErrWriteReport, err)
		}
		if err := writeFile(step.path, data); err != nil {
			return Artifacts{}, errFactory.WithData(ErrWriteReport, struct {
				Path  string
				Error string
			}{
				Path:  step.path,
				Error: err.Error(),
			})
		}

		a.log.Debug().Str("path", step.path).Int("bytes", len(data)).Msg("Artifact written")
	}

	a.log.Info().
		Str("session_id", f.ID).
		Str("output_dir", a.cfg.OutputDir).
		Int("records", len(observations)).
		Msg("Reports generated")

	return out, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
