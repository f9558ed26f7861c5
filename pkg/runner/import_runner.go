package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/block/bcpzip/pkg/archive"
	"github.com/block/bcpzip/pkg/bcp"
	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/block/bcpzip/pkg/random"
	"github.com/siddontang/loggers"
)

type ImportRunner struct {
	profile     conn.Profile
	archivePath string
	tables      []archive.Table
	workDir     string
	copier      bcp.Copier
	logger      loggers.Advanced
}

type ImportConfig struct {
	Profile     conn.Profile
	ArchivePath string
	// Tables are imported in order, regardless of their Selected flag.
	Tables []archive.Table
	// WorkDir is the scratch directory. It is removed before and after the
	// import; a fresh directory under os.TempDir is used when empty.
	WorkDir string
	Copier  bcp.Copier
	Logger  loggers.Advanced
}

var _ Runner = (*ImportRunner)(nil)

func NewImportRunner(cfg *ImportConfig) *ImportRunner {
	return &ImportRunner{
		profile:     cfg.Profile,
		archivePath: cfg.ArchivePath,
		tables:      append([]archive.Table(nil), cfg.Tables...),
		workDir:     cfg.WorkDir,
		copier:      cfg.Copier,
		logger:      cfg.Logger,
	}
}

// Prepare validates the job and picks a scratch directory if none was given.
func (ir *ImportRunner) Prepare() error {
	if err := ir.profile.Validate(); err != nil {
		return err
	}
	if ir.profile.Database == "" {
		return errors.New("database must be specified")
	}
	if ir.copier == nil {
		return errors.New("bulk copier must be specified")
	}
	if ir.archivePath == "" {
		return &archive.PathError{Path: ir.archivePath, Msg: "Error getting file name"}
	}
	if ir.workDir == "" {
		ir.workDir = filepath.Join(os.TempDir(), "bcpzip-import-"+random.ID())
	}

	return nil
}

// WorkDir is the scratch directory used by Run.
func (ir *ImportRunner) WorkDir() string {
	return ir.workDir
}

// Run extracts and loads every table in order. Tables loaded before a failure
// stay loaded. The scratch directory is removed only after a successful run.
func (ir *ImportRunner) Run(ctx context.Context, sink progress.Sink) error {
	if ir.workDir == "" {
		if err := ir.Prepare(); err != nil {
			return err
		}
	}
	startTime := time.Now()
	ir.logger.Infof("Starting import: database=%s tables=%d archive=%s", ir.profile.Database, len(ir.tables), ir.archivePath)
	sink.Progress("Running import: " + ir.archivePath + " ...")

	if err := resetDir(ir.workDir); err != nil {
		return err
	}

	for _, tbl := range ir.tables {
		if err := ir.importTable(ctx, sink, tbl); err != nil {
			ir.logger.Errorf("Failed to import table %s: %v", tbl, bcp.Redact(err.Error()))

			return err
		}
	}

	sink.Progress("Cleaning up work directory ....")
	if err := os.RemoveAll(ir.workDir); err != nil {
		ir.logger.Warnf("Error removing work directory %s: %v", ir.workDir, err)
	}

	ir.logger.Infof("Successfully imported %d tables from %s in %s", len(ir.tables), ir.archivePath, time.Since(startTime).Round(time.Millisecond))
	sink.Progress("Import complete")

	return nil
}

func (ir *ImportRunner) importTable(ctx context.Context, sink progress.Sink, tbl archive.Table) error {
	if err := archive.Extract(ir.archivePath, tbl, ir.workDir, sink); err != nil {
		return err
	}
	sink.Progress("Importing file: " + tbl.DataFile())

	return ir.copier.In(ctx, sink, bcp.Request{
		Object: bcp.Object{
			Database: ir.profile.Database,
			Schema:   tbl.Schema,
			Table:    tbl.Name,
		},
		Dir:        ir.workDir,
		DataFile:   tbl.DataFile(),
		FormatFile: tbl.FormatFile(),
	})
}
