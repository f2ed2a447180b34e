package database

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/runstore"
	"github.com/sagarc03/runstore/database/sqlite"
)

// Family identifies a backend variant.
type Family string

const (
	FamilySQLite   Family = "sqlite"
	FamilyPostgres Family = "postgres"
)

const (
	// DefaultLocation is the conventional store directory for the embedded backend.
	DefaultLocation = ".runstore"
	// DefaultSQLiteFile is the database file name inside a store directory.
	DefaultSQLiteFile = "run_metadata.sqlite"

	defaultSQLiteIdleConns   = 10
	defaultSQLiteOverflow    = 20
	defaultSQLiteBusyTimeout = 5 * time.Second
	defaultPostgresPort      = 5432
	defaultPostgresMaxConns  = 10
	defaultPostgresSSLMode   = "disable"
	defaultHealthCheckPeriod = 30 * time.Second
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the backend family: "sqlite" or "postgres"
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=sqlite postgres"`
	// Location is the default store location (directory or database name)
	Location string         `mapstructure:"location" yaml:"location"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// SQLiteConfig holds embedded backend settings.
type SQLiteConfig struct {
	FileName     string        `mapstructure:"file_name" yaml:"file_name"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=0"`
	BusyTimeout  time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=0"`
}

// PostgresConfig holds networked backend settings.
type PostgresConfig struct {
	Host              string        `mapstructure:"host" yaml:"host"`
	Port              int           `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
	User              string        `mapstructure:"user" yaml:"user"`
	Password          string        `mapstructure:"password" yaml:"-"`
	DBName            string        `mapstructure:"dbname" yaml:"dbname"`
	SSLMode           string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxConns          int32         `mapstructure:"max_conns" yaml:"max_conns" validate:"min=0"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" yaml:"health_check_period" validate:"min=0"`
}

// Backend resolves locations to connection descriptors for one backend family.
// Implementations are pure: Resolve performs no I/O.
type Backend interface {
	Family() Family
	Resolve(location string) (Descriptor, error)
	DefaultLocation() string
}

// Descriptor is everything needed to open a pooled connection to one store.
type Descriptor struct {
	Family Family
	// Key identifies the store; descriptors with equal keys address the same store.
	Key string
	// Location is the resolved directory (sqlite) or database name (postgres).
	Location string
	URL      string
	ReadOnly bool

	MaxOpenConns      int
	MaxIdleConns      int
	HealthCheckPeriod time.Duration
}

// Redacted returns the URL with any password masked, suitable for logs.
func (d Descriptor) Redacted() string {
	u, err := url.Parse(d.URL)
	if err != nil || u.User == nil {
		return d.URL
	}
	return u.Redacted()
}

// Backend selects the backend variant named by Type and checks that its
// required parameters are present. Missing parameters return ErrConfiguration.
func (c Config) Backend() (Backend, error) {
	switch Family(c.Type) {
	case FamilySQLite:
		b := SQLiteBackend{
			Location:     c.Location,
			FileName:     c.SQLite.FileName,
			MaxOpenConns: c.SQLite.MaxOpenConns,
			MaxIdleConns: c.SQLite.MaxIdleConns,
			BusyTimeout:  c.SQLite.BusyTimeout,
		}
		if b.Location == "" {
			b.Location = DefaultLocation
		}
		if b.FileName == "" {
			b.FileName = DefaultSQLiteFile
		}
		if strings.ContainsAny(b.FileName, `/\?`) {
			return nil, fmt.Errorf("sqlite file name %q: %w", b.FileName, runstore.ErrConfiguration)
		}
		if b.MaxIdleConns == 0 {
			b.MaxIdleConns = defaultSQLiteIdleConns
		}
		if b.MaxOpenConns == 0 {
			b.MaxOpenConns = b.MaxIdleConns + defaultSQLiteOverflow
		}
		if b.BusyTimeout == 0 {
			b.BusyTimeout = defaultSQLiteBusyTimeout
		}
		return b, nil

	case FamilyPostgres:
		p := c.Postgres
		var missing []string
		if p.Host == "" {
			missing = append(missing, "host")
		}
		if p.User == "" {
			missing = append(missing, "user")
		}
		if p.DBName == "" && c.Location == "" {
			missing = append(missing, "dbname")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("postgres backend: missing %s: %w", strings.Join(missing, ", "), runstore.ErrConfiguration)
		}

		b := PostgresBackend{
			Host:              p.Host,
			Port:              p.Port,
			User:              p.User,
			Password:          p.Password,
			DBName:            p.DBName,
			SSLMode:           p.SSLMode,
			MaxConns:          p.MaxConns,
			HealthCheckPeriod: p.HealthCheckPeriod,
		}
		if b.DBName == "" {
			b.DBName = c.Location
		}
		if b.Port == 0 {
			b.Port = defaultPostgresPort
		}
		if b.SSLMode == "" {
			b.SSLMode = defaultPostgresSSLMode
		}
		if b.MaxConns == 0 {
			b.MaxConns = defaultPostgresMaxConns
		}
		if b.HealthCheckPeriod == 0 {
			b.HealthCheckPeriod = defaultHealthCheckPeriod
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported database type %q: %w", c.Type, runstore.ErrConfiguration)
	}
}

// SQLiteBackend stores each location as a directory holding one SQLite file.
type SQLiteBackend struct {
	Location     string
	FileName     string
	MaxOpenConns int
	MaxIdleConns int
	BusyTimeout  time.Duration
}

func (b SQLiteBackend) Family() Family { return FamilySQLite }

func (b SQLiteBackend) DefaultLocation() string { return b.Location }

// Resolve maps a store directory to its SQLite file. Relative locations are
// made absolute against the working directory so equivalent spellings share a key.
func (b SQLiteBackend) Resolve(location string) (Descriptor, error) {
	if location == "" {
		location = b.Location
	}

	dir, err := filepath.Abs(location)
	if err != nil {
		return Descriptor{}, fmt.Errorf("resolve sqlite location %s: %w", location, runstore.ErrConfiguration)
	}

	file := filepath.Join(dir, b.FileName)

	return Descriptor{
		Family:       FamilySQLite,
		Key:          "sqlite://" + file,
		Location:     dir,
		URL:          sqlite.DSN(file, b.BusyTimeout),
		MaxOpenConns: b.MaxOpenConns,
		MaxIdleConns: b.MaxIdleConns,
	}, nil
}

// PostgresBackend stores each location as a database on one server.
type PostgresBackend struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MaxConns          int32
	HealthCheckPeriod time.Duration
}

func (b PostgresBackend) Family() Family { return FamilyPostgres }

func (b PostgresBackend) DefaultLocation() string { return b.DBName }

// Resolve maps a database name to a connection URL. An empty location
// resolves to the configured database.
func (b PostgresBackend) Resolve(location string) (Descriptor, error) {
	dbname := location
	if dbname == "" {
		dbname = b.DBName
	}
	if dbname == "" || strings.ContainsAny(dbname, "/?#") {
		return Descriptor{}, fmt.Errorf("resolve postgres database %q: %w", dbname, runstore.ErrConfiguration)
	}

	host := net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(b.User, b.Password),
		Host:     host,
		Path:     "/" + dbname,
		RawQuery: url.Values{"sslmode": []string{b.SSLMode}}.Encode(),
	}
	if b.Password == "" {
		u.User = url.User(b.User)
	}

	return Descriptor{
		Family:            FamilyPostgres,
		Key:               "postgres://" + host + "/" + dbname,
		Location:          dbname,
		URL:               u.String(),
		MaxOpenConns:      int(b.MaxConns),
		HealthCheckPeriod: b.HealthCheckPeriod,
	}, nil
}
