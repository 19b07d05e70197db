package storage

import (
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "data/weatheragent.db"
	defaultBackupDir    = "data/backups"
	defaultBatchSize    = 25
	defaultBatchTimeout = 5 * time.Second
)

type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	DBPath    string `mapstructure:"db_path"`
	BackupDir string `mapstructure:"backup_dir"`
	// BatchSize observations are buffered before a flush; 1 writes through.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout flushes a partial buffer periodically; 0 disables the
	// background flusher.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		DBPath:       defaultDBPath,
		BackupDir:    defaultBackupDir,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}

	switch {
	case c.DBPath == "":
		return errFactory.New(ErrInvalidDBPath)
	case c.BatchSize < 1:
		return errFactory.WithData(ErrInvalidConfig, "batch_size must be at least 1")
	case c.BatchTimeout < 0:
		return errFactory.WithData(ErrInvalidConfig, "batch_timeout must not be negative")
	}

	return nil
}
