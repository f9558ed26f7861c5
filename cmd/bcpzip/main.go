package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/block/bcpzip/pkg/archive"
	"github.com/block/bcpzip/pkg/bcp"
	"github.com/block/bcpzip/pkg/boot"
	"github.com/block/bcpzip/pkg/catalog"
	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/destinations"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/block/bcpzip/pkg/runner"
	"github.com/block/bcpzip/pkg/upload"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var cli struct {
	LogConfig

	Export        ExportCmd        `cmd:"export" help:"Export tables of a database into a zip archive"`
	Import        ImportCmd        `cmd:"import" help:"Import tables from a zip archive into a database"`
	Tables        TablesCmd        `cmd:"tables" help:"List the tables of a database with row counts"`
	ArchiveTables ArchiveTablesCmd `cmd:"archive-tables" help:"List the tables stored in a zip archive"`
	Databases     DatabasesCmd     `cmd:"databases" help:"List the databases on a server"`
	Check         CheckCmd         `cmd:"check" help:"Check that bcp is available and the server answers"`
}

// ExportCmd holds the arguments required for exporting tables into an archive.
type ExportCmd struct {
	Output    string   `arg:"" name:"output" help:"Archive path; .zip is appended when it has no extension"`
	Tables    []string `name:"table" short:"t" help:"schema.table to export, repeatable; all tables when omitted"`
	Codec     string   `name:"codec" help:"Data file compression" enum:"zstd,gz" default:"zstd"`
	Overwrite bool     `name:"overwrite" help:"Replace an existing archive"`
	Bcp       string   `name:"bcp" help:"bcp executable" default:"bcp"`
	DstType   string   `name:"destination-type" help:"Where to publish the archive: local, dir or s3" enum:"local,dir,s3" default:"local"`
	DstPath   string   `name:"destination-path" help:"Directory or s3://bucket/prefix to publish the archive to" optional:""`
	runner.DBCreds
}

// ImportCmd holds the arguments required for importing tables from an archive.
type ImportCmd struct {
	Archive string   `arg:"" name:"archive" help:"Archive to import" type:"existingfile"`
	Tables  []string `name:"table" short:"t" help:"schema.table to import, repeatable; all tables when omitted"`
	WorkDir string   `name:"work-dir" help:"Scratch directory, removed before and after the import" optional:""`
	Bcp     string   `name:"bcp" help:"bcp executable" default:"bcp"`
	runner.DBCreds
}

type TablesCmd struct {
	runner.DBCreds
}

type ArchiveTablesCmd struct {
	Archive string `arg:"" name:"archive" help:"Archive to list" type:"existingfile"`
}

type DatabasesCmd struct {
	runner.DBCreds
}

type CheckCmd struct {
	Bcp string `name:"bcp" help:"bcp executable" default:"bcp"`
	runner.DBCreds
}

// stdout prints progress lines as they arrive.
var stdout = progress.Func(func(line string) {
	fmt.Println(line)
})

// Run invokes the export. Blocks until completion.
func (e *ExportCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	profile := e.Profile()
	if err := profile.Validate(); err != nil {
		return err
	}
	codec, err := archive.ParseCodec(e.Codec)
	if err != nil {
		return err
	}
	parentDir, filename, err := archive.SplitOutputPath(e.Output)
	if err != nil {
		return err
	}
	if err = preflight(ctx, profile, func(db catalog.Querier) boot.Booter {
		return boot.NewExportBooter(&boot.ExportBooterConfig{
			Executable: e.Bcp,
			ParentDir:  parentDir,
			Filename:   filename,
			Overwrite:  e.Overwrite,
			DB:         db,
			Logger:     logger,
		})
	}); err != nil {
		return err
	}

	tables, err := runner.DiscoverTables(ctx, profile, e.Tables, logger, progress.Discard)
	if err != nil {
		return err
	}
	selected, err := requireSelected(catalog.Selected(tables), e.Tables, catalog.Table.String)
	if err != nil {
		return err
	}

	dst, err := destinations.Parse(e.DstType)
	if err != nil {
		return err
	}
	var uploader upload.Uploader
	if dst != destinations.Local {
		if uploader, err = upload.NewUploader(ctx, e.DstType, e.DstPath, upload.DefaultConfigLoader); err != nil {
			return err
		}
	}

	return runJob(ctx, logger, runner.NewExportRunner(&runner.ExportConfig{
		Profile:   profile,
		Tables:    selected,
		ParentDir: parentDir,
		Filename:  filename,
		Codec:     codec,
		Copier:    bcp.NewRunner(&bcp.RunnerConfig{Profile: profile, Executable: e.Bcp, Logger: logger}),
		Uploader:  uploader,
		Logger:    logger,
	}))
}

// Run invokes the import. Blocks until completion.
func (i *ImportCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	profile := i.Profile()
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := preflight(ctx, profile, func(db catalog.Querier) boot.Booter {
		return boot.NewImportBooter(&boot.ImportBooterConfig{
			Executable:  i.Bcp,
			ArchivePath: i.Archive,
			DB:          db,
			Logger:      logger,
		})
	}); err != nil {
		return err
	}

	tables, err := archive.ListTables(i.Archive, progress.Discard)
	if err != nil {
		return err
	}
	selected, err := requireSelected(archive.Selected(archive.Select(tables, i.Tables)), i.Tables, archive.Table.String)
	if err != nil {
		return err
	}

	return runJob(ctx, logger, runner.NewImportRunner(&runner.ImportConfig{
		Profile:     profile,
		ArchivePath: i.Archive,
		Tables:      selected,
		WorkDir:     i.WorkDir,
		Copier:      bcp.NewRunner(&bcp.RunnerConfig{Profile: profile, Executable: i.Bcp, Logger: logger}),
		Logger:      logger,
	}))
}

func (t *TablesCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	_, err := runner.DiscoverTables(ctx, t.Profile(), nil, logger, stdout)

	return err
}

func (a *ArchiveTablesCmd) Run() error {
	_, err := archive.ListTables(a.Archive, stdout)

	return err
}

func (d *DatabasesCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	names, err := runner.ListDatabases(ctx, d.Profile(), logger)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}

	return nil
}

func (c *CheckCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	path, err := boot.CheckExecutable(c.Bcp)
	if err != nil {
		return err
	}
	fmt.Println("bcp: " + path)
	version, err := runner.ServerVersion(ctx, c.Profile(), logger)
	if err != nil {
		return err
	}
	fmt.Println("server: " + strings.TrimSpace(version))

	return nil
}

var openDB = conn.Open

// preflight connects with profile and runs the checks of the booter built
// around that connection.
func preflight(ctx context.Context, profile conn.Profile, newBooter func(db catalog.Querier) boot.Booter) error {
	db, err := openDB(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed preflight checks: %w", err)
	}
	defer db.Close()

	if err = newBooter(db).PreflightChecks(ctx); err != nil {
		return fmt.Errorf("failed preflight checks: %w", err)
	}

	return nil
}

// requireSelected fails when nothing is selected or a requested name matched
// no table.
func requireSelected[T any](selected []T, names []string, name func(T) string) ([]T, error) {
	if len(selected) == 0 {
		return nil, errors.New("no tables selected")
	}
	found := lo.Map(selected, func(t T, _ int) string {
		return strings.ToLower(name(t))
	})
	missing := lo.Filter(names, func(n string, _ int) bool {
		return !lo.Contains(found, strings.ToLower(n))
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("tables not found: %s", strings.Join(missing, ", "))
	}

	return selected, nil
}

// runJob starts r as a job, prints its progress and turns a failed result
// into an error.
func runJob(ctx context.Context, logger *logrus.Logger, r runner.Runner) error {
	job := runner.Start(ctx, r, logger)
	for ev := range job.Events() {
		for _, line := range ev.Lines {
			stdout.Progress(line)
		}
		if ev.Result != nil && !ev.Result.Success {
			return errors.New(ev.Result.Message)
		}
	}

	return nil
}

func main() {
	parsedCmd := kong.Parse(&cli,
		kong.Name("bcpzip"),
		kong.Description("Move SQL Server tables to and from zip archives with bcp."),
	)
	logger, err := cli.newLogger()
	parsedCmd.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	parsedCmd.BindTo(ctx, (*context.Context)(nil))
	parsedCmd.FatalIfErrorf(parsedCmd.Run(logger))
}
