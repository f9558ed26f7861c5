package boot

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/block/bcpzip/pkg/catalog"
	"github.com/block/bcpzip/pkg/test"
	"github.com/stretchr/testify/require"
)

func fakeBcp(t *testing.T) string {
	t.Helper()

	return test.WriteScript(t, t.TempDir(), "bcp", "exit 0")
}

func TestExportBooterPreflightChecks(t *testing.T) {
	exe := fakeBcp(t)
	parent := t.TempDir()
	newBooter := func(filename string, overwrite bool) *ExportBooter {
		return NewExportBooter(&ExportBooterConfig{
			Executable: exe,
			ParentDir:  parent,
			Filename:   filename,
			Overwrite:  overwrite,
			Logger:     test.Logger(t),
		})
	}

	require.NoError(t, newBooter("nightly", false).PreflightChecks(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(parent, "nightly.zip"), []byte("old"), 0o644))
	err := newBooter("nightly", false).PreflightChecks(context.Background())
	require.ErrorContains(t, err, "output file already exists")
	require.NoError(t, newBooter("nightly.zip", true).PreflightChecks(context.Background()))

	missingDir := NewExportBooter(&ExportBooterConfig{
		Executable: exe,
		ParentDir:  filepath.Join(parent, "missing"),
		Filename:   "nightly",
		Logger:     test.Logger(t),
	})
	require.ErrorContains(t, missingDir.PreflightChecks(context.Background()), "output directory does not exist")
}

func TestPreflightMissingExecutable(t *testing.T) {
	eb := NewExportBooter(&ExportBooterConfig{
		Executable: filepath.Join(t.TempDir(), "bcp"),
		ParentDir:  t.TempDir(),
		Filename:   "nightly",
		Logger:     test.Logger(t),
	})
	require.ErrorContains(t, eb.PreflightChecks(context.Background()), "is not available")

	ib := NewImportBooter(&ImportBooterConfig{
		Executable:  "bcp-definitely-not-installed",
		ArchivePath: "nightly.zip",
		Logger:      test.Logger(t),
	})
	require.ErrorContains(t, ib.PreflightChecks(context.Background()), "is not available")
}

func TestImportBooterPreflightChecks(t *testing.T) {
	exe := fakeBcp(t)
	archivePath := filepath.Join(t.TempDir(), "nightly.zip")

	ib := NewImportBooter(&ImportBooterConfig{Executable: exe, ArchivePath: archivePath, Logger: test.Logger(t)})
	require.ErrorContains(t, ib.PreflightChecks(context.Background()), "Specified file is not found")

	require.NoError(t, os.WriteFile(archivePath, []byte("zip"), 0o644))
	require.NoError(t, ib.PreflightChecks(context.Background()))

	dir := NewImportBooter(&ImportBooterConfig{Executable: exe, ArchivePath: t.TempDir(), Logger: test.Logger(t)})
	require.ErrorContains(t, dir.PreflightChecks(context.Background()), "is a directory")
}

func TestPreflightServerCheck(t *testing.T) {
	exe := fakeBcp(t)
	archivePath := filepath.Join(t.TempDir(), "nightly.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(`select @@version`).WillReturnRows(
		sqlmock.NewRows([]string{"version"}).AddRow("Microsoft SQL Server 2022 (RTM) - 16.0.1000.6"))
	mock.ExpectQuery(`select @@version`).WillReturnRows(
		sqlmock.NewRows([]string{"version"}).AddRow(nil))

	newBooter := func(db *sql.DB) *ImportBooter {
		return NewImportBooter(&ImportBooterConfig{Executable: exe, ArchivePath: archivePath, DB: db, Logger: test.Logger(t)})
	}
	require.NoError(t, newBooter(db).PreflightChecks(context.Background()))

	err = newBooter(db).PreflightChecks(context.Background())
	var discoveryErr *catalog.DiscoveryError
	require.ErrorAs(t, err, &discoveryErr)
	require.ErrorContains(t, err, "Invalid empty response to version query")
	require.NoError(t, mock.ExpectationsWereMet())
}
