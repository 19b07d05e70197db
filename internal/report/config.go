package report

import "codeberg.org/mutker/weatheragent/internal/errors"

const (
	defaultDirPerm   = 0o755
	defaultFilePerm  = 0o644
	defaultOutputDir = "."
	defaultCollector = "weatheragent"
)

type Config struct {
	// OutputDir is the root below which data/ and reports/ are created.
	OutputDir string `mapstructure:"output_dir"`
	Collector string `mapstructure:"collector"`
}

func DefaultConfig() Config {
	return Config{
		OutputDir: defaultOutputDir,
		Collector: defaultCollector,
	}
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New().WithData(ErrInvalidConfig, "output_dir must not be empty")
	}

	return nil
}
