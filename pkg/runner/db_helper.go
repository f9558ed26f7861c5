package runner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/block/bcpzip/pkg/catalog"
	"github.com/block/bcpzip/pkg/conn"
	"github.com/block/bcpzip/pkg/progress"
	"github.com/siddontang/loggers"
)

// DBCreds holds the connection flags shared by every command that talks to a
// server.
type DBCreds struct {
	Host                   string `name:"host" help:"Server hostname" optional:"" default:"127.0.0.1"`
	Port                   uint16 `name:"port" help:"TCP port, mutually exclusive with --instance" optional:"" xor:"endpoint"`
	Instance               string `name:"instance" help:"Named instance, mutually exclusive with --port" optional:"" xor:"endpoint"`
	Trusted                bool   `name:"trusted" help:"Use integrated (Windows) authentication" optional:""`
	Username               string `name:"username" help:"User" optional:"" default:"sa"`
	Password               string `name:"password" help:"Password" optional:"" env:"BCPZIP_PASSWORD"`
	Database               string `name:"database" help:"Database" optional:"" default:"master"`
	TrustServerCertificate bool   `name:"trust-server-certificate" help:"Skip TLS certificate validation" optional:"" default:"true" negatable:""`
}

// Profile converts the flags into a connection profile. Port 1433 is assumed
// when neither a port nor an instance is given.
func (c *DBCreds) Profile() conn.Profile {
	p := conn.Profile{
		Hostname:               c.Host,
		Port:                   c.Port,
		Instance:               c.Instance,
		IntegratedAuth:         c.Trusted,
		Database:               c.Database,
		TrustServerCertificate: c.TrustServerCertificate,
	}
	if p.Instance == "" && p.Port == 0 {
		p.Port = 1433
	}
	if !c.Trusted {
		p.Username = c.Username
		p.Password = c.Password
	}

	return p
}

func setupDB(ctx context.Context, profile conn.Profile) (*sql.DB, error) {
	db, err := conn.Open(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database err:%w", err)
	}

	return db, nil
}

// DiscoverTables connects with profile and lists the tables of its database,
// marking those named in names (all of them when names is empty) as selected.
func DiscoverTables(ctx context.Context, profile conn.Profile, names []string, logger loggers.Advanced, sink progress.Sink) ([]catalog.Table, error) {
	db, err := setupDB(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tables, err := catalog.New(db, logger).Tables(ctx, profile.Database, sink)
	if err != nil {
		return nil, err
	}

	return catalog.Select(tables, names), nil
}

// ListDatabases connects with profile and returns the database names on the server.
func ListDatabases(ctx context.Context, profile conn.Profile, logger loggers.Advanced) ([]string, error) {
	db, err := setupDB(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return catalog.New(db, logger).ListDatabases(ctx)
}

// ServerVersion connects with profile and returns the server version banner.
func ServerVersion(ctx context.Context, profile conn.Profile, logger loggers.Advanced) (string, error) {
	db, err := setupDB(ctx, profile)
	if err != nil {
		return "", err
	}
	defer db.Close()

	return catalog.New(db, logger).ServerVersion(ctx)
}
