package boot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/block/bcpzip/pkg/archive"
	"github.com/block/bcpzip/pkg/catalog"
	"github.com/siddontang/loggers"
)

type ExportBooter struct {
	executable string
	parentDir  string
	filename   string
	overwrite  bool
	db         catalog.Querier
	logger     loggers.Advanced
}

type ExportBooterConfig struct {
	Executable string
	ParentDir  string
	Filename   string
	// Overwrite allows replacing an existing archive.
	Overwrite bool
	// DB is optional; when set the server must answer a version query.
	DB     catalog.Querier
	Logger loggers.Advanced
}

func NewExportBooter(cfg *ExportBooterConfig) *ExportBooter {
	return &ExportBooter{
		executable: cfg.Executable,
		parentDir:  cfg.ParentDir,
		filename:   cfg.Filename,
		overwrite:  cfg.Overwrite,
		db:         cfg.DB,
		logger:     cfg.Logger,
	}
}

var _ Booter = (*ExportBooter)(nil)

func (eb *ExportBooter) PreflightChecks(ctx context.Context) error {
	if _, err := CheckExecutable(eb.executable); err != nil {
		return err
	}
	info, err := os.Stat(eb.parentDir)
	if err != nil {
		return fmt.Errorf("output directory does not exist, path: %s", eb.parentDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory, path: %s", eb.parentDir)
	}
	archiveName, _ := archive.DestinationNames(eb.filename)
	archivePath := filepath.Join(eb.parentDir, archiveName)
	if _, err = os.Stat(archivePath); err == nil {
		if !eb.overwrite {
			return fmt.Errorf("output file already exists, path: %s", archivePath)
		}
		eb.logger.Warnf("Overwriting existing archive %s", archivePath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not check output file %s: %w", archivePath, err)
	}

	return checkServer(ctx, eb.db, eb.logger)
}
