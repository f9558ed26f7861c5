package boot

import (
	"context"
	"fmt"
	"os"

	"github.com/block/bcpzip/pkg/catalog"
	"github.com/siddontang/loggers"
)

type ImportBooter struct {
	executable  string
	archivePath string
	db          catalog.Querier
	logger      loggers.Advanced
}

type ImportBooterConfig struct {
	Executable  string
	ArchivePath string
	DB          catalog.Querier
	Logger      loggers.Advanced
}

func NewImportBooter(cfg *ImportBooterConfig) *ImportBooter {
	return &ImportBooter{
		executable:  cfg.Executable,
		archivePath: cfg.ArchivePath,
		db:          cfg.DB,
		logger:      cfg.Logger,
	}
}

var _ Booter = (*ImportBooter)(nil)

func (ib *ImportBooter) PreflightChecks(ctx context.Context) error {
	if _, err := CheckExecutable(ib.executable); err != nil {
		return err
	}
	info, err := os.Stat(ib.archivePath)
	if err != nil {
		return fmt.Errorf("Specified file is not found, path: %s", ib.archivePath) //nolint:stylecheck // user-facing message
	}
	if info.IsDir() {
		return fmt.Errorf("archive path is a directory, path: %s", ib.archivePath)
	}

	return checkServer(ctx, ib.db, ib.logger)
}
