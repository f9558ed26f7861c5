package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alecthomas/kong"
	"github.com/block/bcpzip/pkg/archive"
	"github.com/block/bcpzip/pkg/boot"
	"github.com/block/bcpzip/pkg/catalog"
	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/test"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *kong.Context {
	t.Helper()
	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)

	return ctx
}

func TestParseExport(t *testing.T) {
	t.Setenv("BCPZIP_PASSWORD", "from-env")
	ctx := parse(t, "export", "/tmp/out/nightly", "--host", "db1", "--port", "1444",
		"--database", "shop", "-t", "dbo.a", "-t", "dbo.b", "--codec", "gz")

	require.Equal(t, "export <output>", ctx.Command())
	require.Equal(t, []string{"dbo.a", "dbo.b"}, cli.Export.Tables)
	require.Equal(t, "gz", cli.Export.Codec)
	require.Equal(t, "local", cli.Export.DstType)
	require.Equal(t, conn.Profile{
		Hostname:               "db1",
		Port:                   1444,
		Username:               "sa",
		Password:               "from-env",
		Database:               "shop",
		TrustServerCertificate: true,
	}, cli.Export.Profile())
}

func TestParseImportTrusted(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "nightly.zip")
	require.NoError(t, os.WriteFile(archivePath, nil, 0o644))
	parse(t, "import", archivePath, "--host", "db1", "--instance", "SQLEXPRESS", "--trusted", "--database", "restore")

	p := cli.Import.Profile()
	require.True(t, p.IntegratedAuth)
	require.Equal(t, "SQLEXPRESS", p.Instance)
	require.Zero(t, p.Port)
	require.Empty(t, p.Password)
	require.NoError(t, p.Validate())
}

func TestParsePortInstanceExclusive(t *testing.T) {
	parser, err := kong.New(&cli, kong.Exit(func(int) {}))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"tables", "--port", "1433", "--instance", "SQLEXPRESS"})
	require.Error(t, err)
}

func TestRequireSelected(t *testing.T) {
	tables := catalog.Select([]catalog.Table{
		catalog.NewTable("dbo", "a", 1),
		catalog.NewTable("dbo", "b", 2),
	}, []string{"dbo.A"})

	selected, err := requireSelected(catalog.Selected(tables), []string{"dbo.A"}, catalog.Table.String)
	require.NoError(t, err)
	require.Len(t, selected, 1)

	_, err = requireSelected(catalog.Selected(tables), []string{"dbo.A", "dbo.missing"}, catalog.Table.String)
	require.EqualError(t, err, "tables not found: dbo.missing")

	_, err = requireSelected([]archive.Table{}, nil, archive.Table.String)
	require.EqualError(t, err, "no tables selected")
}

func TestNewLogger(t *testing.T) {
	lc := LogConfig{LogLevel: "debug", LogFile: filepath.Join(t.TempDir(), "bcpzip.log")}
	logger, err := lc.newLogger()
	require.NoError(t, err)
	require.Equal(t, "debug", logger.GetLevel().String())

	lc.LogLevel = "loud"
	_, err = lc.newLogger()
	require.Error(t, err)
}

func TestPreflightChecksServer(t *testing.T) {
	exe := test.WriteScript(t, t.TempDir(), "bcp", "exit 0")
	archivePath := filepath.Join(t.TempDir(), "nightly.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip"), 0o644))

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery(`select @@version`).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(nil))
	mock.ExpectClose()

	var opened conn.Profile
	defer func(orig func(context.Context, conn.Profile) (*sql.DB, error)) { openDB = orig }(openDB)
	openDB = func(_ context.Context, p conn.Profile) (*sql.DB, error) {
		opened = p

		return db, nil
	}
	profile := conn.Profile{Hostname: "db1", Port: 1433, Username: "sa", Password: "pw", Database: "shop"}

	err = preflight(context.Background(), profile, func(q catalog.Querier) boot.Booter {
		return boot.NewImportBooter(&boot.ImportBooterConfig{
			Executable:  exe,
			ArchivePath: archivePath,
			DB:          q,
			Logger:      test.Logger(t),
		})
	})
	require.ErrorContains(t, err, "failed preflight checks")
	require.ErrorContains(t, err, "Invalid empty response to version query")
	require.Equal(t, profile, opened)
	require.NoError(t, mock.ExpectationsWereMet())

	openDB = func(context.Context, conn.Profile) (*sql.DB, error) {
		return nil, errors.New("login failed")
	}
	err = preflight(context.Background(), profile, func(catalog.Querier) boot.Booter {
		t.Fatal("booter built without a connection")

		return nil
	})
	require.ErrorContains(t, err, "login failed")
}
