package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/block/bcpzip/pkg/archive"
	"github.com/block/bcpzip/pkg/bcp"
	"github.com/block/bcpzip/pkg/catalog"
	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/block/bcpzip/pkg/upload"
	"github.com/siddontang/loggers"
)

type ExportRunner struct {
	profile   conn.Profile
	tables    []catalog.Table
	parentDir string
	filename  string
	codec     archive.Codec
	copier    bcp.Copier
	uploader  upload.Uploader
	logger    loggers.Advanced

	archivePath string
	workDir     string
}

type ExportConfig struct {
	Profile conn.Profile
	// Tables are exported in order, regardless of their Selected flag.
	Tables    []catalog.Table
	ParentDir string
	Filename  string
	// Codec defaults to archive.DefaultCodec.
	Codec  archive.Codec
	Copier bcp.Copier
	// Uploader is optional; when set the finished archive is published with it.
	Uploader upload.Uploader
	Logger   loggers.Advanced
}

var _ Runner = (*ExportRunner)(nil)

func NewExportRunner(cfg *ExportConfig) *ExportRunner {
	codec := cfg.Codec
	if codec == "" {
		codec = archive.DefaultCodec
	}

	return &ExportRunner{
		profile:   cfg.Profile,
		tables:    append([]catalog.Table(nil), cfg.Tables...),
		parentDir: cfg.ParentDir,
		filename:  cfg.Filename,
		codec:     codec,
		copier:    cfg.Copier,
		uploader:  cfg.Uploader,
		logger:    cfg.Logger,
	}
}

// Prepare validates the job and derives the archive and work directory paths.
func (er *ExportRunner) Prepare() error {
	if err := er.profile.Validate(); err != nil {
		return err
	}
	if er.profile.Database == "" {
		return errors.New("database must be specified")
	}
	if er.copier == nil {
		return errors.New("bulk copier must be specified")
	}
	if er.filename == "" {
		return &archive.PathError{Path: filepath.Join(er.parentDir, er.filename), Msg: "Error getting file name"}
	}
	if _, err := archive.ParseCodec(er.codec.String()); err != nil {
		return err
	}
	archiveName, rootName := archive.DestinationNames(er.filename)
	er.archivePath = filepath.Join(er.parentDir, archiveName)
	er.workDir = filepath.Join(er.parentDir, rootName)
	if rootName == "" || rootName == "." || rootName == ".." || filepath.Clean(er.workDir) == filepath.Clean(er.parentDir) {
		er.archivePath, er.workDir = "", ""

		return &archive.PathError{Path: filepath.Join(er.parentDir, er.filename), Msg: "Error getting root directory name"}
	}

	return nil
}

// ArchivePath is the archive written by Run. Prepare must be called first.
func (er *ExportRunner) ArchivePath() string {
	return er.archivePath
}

// Run exports every table into the work directory, packs it into the archive
// and removes it. The first failing step aborts the job.
func (er *ExportRunner) Run(ctx context.Context, sink progress.Sink) error {
	if er.archivePath == "" {
		if err := er.Prepare(); err != nil {
			return err
		}
	}
	startTime := time.Now()
	er.logger.Infof("Starting export: database=%s tables=%d archive=%s", er.profile.Database, len(er.tables), er.archivePath)
	sink.Progress("Running export ...")
	sink.Progress("Export file: " + er.archivePath)

	if err := resetDir(er.workDir); err != nil {
		return err
	}

	sink.Progress("Running bcp ....")
	for _, tbl := range er.tables {
		if err := er.exportTable(ctx, sink, tbl); err != nil {
			er.logger.Errorf("Failed to export table %s: %v", tbl, bcp.Redact(err.Error()))

			return err
		}
	}

	sink.Progress("Zipping destination directory ....")
	if err := archive.WriteDir(er.workDir, er.archivePath, sink); err != nil {
		return fmt.Errorf("Error zipping destination directory, path: %s, error: %w", er.workDir, err) //nolint:stylecheck // user-facing message
	}
	if err := os.RemoveAll(er.workDir); err != nil {
		return fmt.Errorf("Error zipping destination directory, path: %s, error: %w", er.workDir, err) //nolint:stylecheck // user-facing message
	}

	if er.uploader != nil {
		sink.Progress("Publishing archive: " + er.archivePath)
		if err := er.uploader.Upload(ctx, er.archivePath); err != nil {
			return fmt.Errorf("error publishing archive %s: %w", er.archivePath, err)
		}
	}

	er.logger.Infof("Successfully exported %d tables to %s in %s", len(er.tables), er.archivePath, time.Since(startTime).Round(time.Millisecond))
	sink.Progress("Export complete")

	return nil
}

func (er *ExportRunner) exportTable(ctx context.Context, sink progress.Sink, tbl catalog.Table) error {
	req := bcp.Request{
		Object: bcp.Object{
			Database: er.profile.Database,
			Schema:   tbl.Schema,
			Table:    tbl.Name,
		},
		Dir:        er.workDir,
		DataFile:   tbl.String() + ".bcp",
		FormatFile: tbl.String() + ".xml",
	}

	sink.Progress("Creating bcp format file: " + tbl.String())
	if err := er.copier.Format(ctx, sink, req); err != nil {
		return err
	}
	sink.Progress("Exporting data: " + tbl.String())
	if err := er.copier.Out(ctx, sink, req); err != nil {
		return err
	}
	if _, err := archive.CompressFile(er.workDir, req.DataFile, er.codec, sink); err != nil {
		return err
	}

	return nil
}
