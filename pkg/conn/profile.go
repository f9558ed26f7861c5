// Package conn describes how to reach a SQL Server compatible database, both for
// the bcp command line and for the database/sql driver used during discovery.
package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/denisenkom/go-mssqldb" // registers the sqlserver driver
)

const driverName = "sqlserver"

// Profile is an immutable description of a database endpoint. It is passed by value
// so every job works on its own copy.
type Profile struct {
	Hostname string
	// Port and Instance are mutually exclusive.
	Port     uint16
	Instance string

	IntegratedAuth bool
	Username       string
	Password       string

	Database               string
	TrustServerCertificate bool
}

// Validate checks the port/instance and credential invariants.
func (p Profile) Validate() error {
	if p.Hostname == "" {
		return errors.New("hostname must be specified")
	}
	if p.Instance != "" && p.Port != 0 {
		return errors.New("port and instance name are mutually exclusive")
	}
	if p.Instance == "" && p.Port == 0 {
		return errors.New("port must be specified with a value between 1 and 65535")
	}
	if !p.IntegratedAuth && (p.Username == "" || p.Password == "") {
		return errors.New("username and password must be specified")
	}

	return nil
}

// UsesNamedInstance reports whether the server is addressed by instance name.
func (p Profile) UsesNamedInstance() bool {
	return p.Instance != ""
}

// WithDatabase returns a copy of the profile targeting another database.
func (p Profile) WithDatabase(dbname string) Profile {
	p.Database = dbname

	return p
}

// ServerArg is the value of the bcp -S flag.
func (p Profile) ServerArg() string {
	if p.UsesNamedInstance() {
		return fmt.Sprintf(`tcp:%s\%s`, p.Hostname, p.Instance)
	}

	return fmt.Sprintf("tcp:%s,%d", p.Hostname, p.Port)
}

// AuthArgs are the bcp credential flags.
func (p Profile) AuthArgs() []string {
	if p.IntegratedAuth {
		return []string{"-T"}
	}

	return []string{"-U", p.Username, "-P", p.Password}
}

// DSN builds a sqlserver:// URL for the go-mssqldb driver.
func (p Profile) DSN() string {
	u := &url.URL{Scheme: "sqlserver"}
	if p.UsesNamedInstance() {
		u.Host = p.Hostname
		u.Path = p.Instance
	} else {
		u.Host = net.JoinHostPort(p.Hostname, strconv.Itoa(int(p.Port)))
	}
	if !p.IntegratedAuth {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	q := url.Values{}
	if p.Database != "" {
		q.Set("database", p.Database)
	}
	if p.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// String never includes the password.
func (p Profile) String() string {
	auth := "integrated"
	if !p.IntegratedAuth {
		auth = "user=" + p.Username + " password=xxxxx"
	}

	return fmt.Sprintf("server=%s database=%s auth=%s", p.ServerArg(), p.Database, auth)
}

// Open connects to the profile's database and pings it.
func Open(ctx context.Context, p Profile) (*sql.DB, error) {
	db, err := sql.Open(driverName, p.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database err:%w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("error connecting to database %s: %w", p, err)
	}

	return db, nil
}
