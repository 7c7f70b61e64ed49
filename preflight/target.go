package preflight

import (
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Engine is the value of DATABASE_ENGINE understood by the project's settings.
type Engine string

const (
	// EngineSQLite is the default engine: a file next to manage.py.
	EngineSQLite Engine = "sqlite3"

	// EnginePostgres selects django.db.backends.postgresql.
	EnginePostgres Engine = "postgresql"

	// EngineMySQL selects django.db.backends.mysql.
	EngineMySQL Engine = "mysql"
)

// Environment variables read from the process environment and the .env file.
const (
	EnvEngine   = "DATABASE_ENGINE"
	EnvName     = "DATABASE_NAME"
	EnvUser     = "DATABASE_USER"
	EnvPassword = "DATABASE_PASSWORD"
	EnvHost     = "DATABASE_HOST"
	EnvPort     = "DATABASE_PORT"

	// EnvPostgresSSLMode is libpq's own variable; it defaults to "disable" here
	// because the development database is normally local.
	EnvPostgresSSLMode = "PGSSLMODE"
)

const (
	defaultHost       = "localhost"
	defaultSQLiteName = "db.sqlite3"
	defaultServerName = "your_db_name"
	defaultServerUser = "your_db_user"
	defaultPGPort     = "5432"
	defaultMySQLPort  = "3306"
)

// Target describes how to reach the database Django will migrate.
type Target struct {
	// Engine is the resolved engine.
	Engine Engine

	// Driver is the database/sql driver name.
	Driver string

	// DSN is the driver-specific connection string. It may contain a password.
	DSN string

	// Path is the absolute sqlite file path. Empty for server engines.
	Path string

	// Addr is host:port for server engines. Empty for sqlite.
	Addr string

	// Database is the database name (or sqlite file name) for logging.
	Database string
}

// Resolve builds the Target the project's settings would connect to for env.
// baseDir is the directory containing manage.py; relative sqlite names are
// resolved against it. Unknown engines fall back to sqlite, as the settings do.
func Resolve(env map[string]string, baseDir string) Target {
	get := func(key, fallback string) string {
		if v, ok := env[key]; ok && v != "" {
			return v
		}
		return fallback
	}

	switch Engine(strings.TrimSpace(env[EnvEngine])) {
	case EnginePostgres:
		host := get(EnvHost, defaultHost)
		port := get(EnvPort, defaultPGPort)
		name := get(EnvName, defaultServerName)
		dsn := strings.Join([]string{
			"host=" + quoteConnValue(host),
			"port=" + quoteConnValue(port),
			"user=" + quoteConnValue(get(EnvUser, defaultServerUser)),
			"password=" + quoteConnValue(env[EnvPassword]),
			"dbname=" + quoteConnValue(name),
			"sslmode=" + quoteConnValue(get(EnvPostgresSSLMode, "disable")),
		}, " ")
		return Target{
			Engine:   EnginePostgres,
			Driver:   "postgres",
			DSN:      dsn,
			Addr:     net.JoinHostPort(host, port),
			Database: name,
		}

	case EngineMySQL:
		cfg := mysql.NewConfig()
		cfg.User = get(EnvUser, defaultServerUser)
		cfg.Passwd = env[EnvPassword]
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(get(EnvHost, defaultHost), get(EnvPort, defaultMySQLPort))
		cfg.DBName = get(EnvName, defaultServerName)
		return Target{
			Engine:   EngineMySQL,
			Driver:   "mysql",
			DSN:      cfg.FormatDSN(),
			Addr:     cfg.Addr,
			Database: cfg.DBName,
		}

	default:
		name := get(EnvName, defaultSQLiteName)
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, name)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		return Target{
			Engine:   EngineSQLite,
			Driver:   "sqlite3",
			DSN:      sqliteDSN(path, "ro"),
			Path:     path,
			Database: name,
		}
	}
}

// sqliteDSN builds a SQLite URI filename for path, percent-escaping characters
// such as '?' and '#' that would otherwise end the path early.
func sqliteDSN(path, mode string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=" + mode}
	return u.String()
}

// quoteConnValue quotes a value for a libpq key/value connection string.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
