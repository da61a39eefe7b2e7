package sqlmap

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds what a factory needs: how to reach the database and which
// declared package to bind.
type Config struct {
	Driver   string
	URL      string
	User     string
	Password string
	Package  string

	Strict   bool
	LogLevel string
}

// Config keys as they appear in a config file. Each can be overridden by an
// environment variable named SQLMAP_ followed by the upper-cased key.
const (
	KeyDriver   = "driver"
	KeyURL      = "url"
	KeyUser     = "user"
	KeyPassword = "password"
	KeyPackage  = "package"
	KeyStrict   = "strict"
	KeyLogLevel = "log_level"
)

// LoadConfig reads a key=value config file.
//
//	driver=postgres
//	url=postgres://localhost:5432/app?sslmode=disable
//	user=app
//	password=secret
//	package=users
func LoadConfig(path string) (Config, error) {
	kv, err := godotenv.Read(path)
	if err != nil {
		return Config{}, fmt.Errorf("sqlmap: read config %s: %w", path, err)
	}
	return ConfigFromMap(kv)
}

// ConfigFromMap builds a Config from raw key/value pairs, applying
// SQLMAP_* environment overrides.
func ConfigFromMap(kv map[string]string) (Config, error) {
	get := func(key string) string {
		if v, ok := os.LookupEnv("SQLMAP_" + strings.ToUpper(key)); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(kv[key])
	}

	cfg := Config{
		Driver:   get(KeyDriver),
		URL:      get(KeyURL),
		User:     get(KeyUser),
		Password: get(KeyPassword),
		Package:  get(KeyPackage),
		LogLevel: get(KeyLogLevel),
	}
	if s := get(KeyStrict); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Config{}, fmt.Errorf("sqlmap: config %s: %w", KeyStrict, err)
		}
		cfg.Strict = b
	}
	return cfg, cfg.Validate()
}

// Validate reports missing required keys.
func (c Config) Validate() error {
	var errs []error
	if c.Driver == "" {
		errs = append(errs, fmt.Errorf("sqlmap: config: %s is required", KeyDriver))
	}
	if c.URL == "" {
		errs = append(errs, fmt.Errorf("sqlmap: config: %s is required", KeyURL))
	}
	if c.Package == "" {
		errs = append(errs, fmt.Errorf("sqlmap: config: %s is required", KeyPackage))
	}
	return errors.Join(errs...)
}

// DSN returns the data source name handed to sql.Open. Credentials are
// placed into URL-form DSNs (scheme://host/...) as user info and appended to
// keyword-form DSNs (host=... dbname=...). Other DSNs, such as SQLite file
// paths, are returned unchanged.
func (c Config) DSN() string {
	if c.User == "" {
		return c.URL
	}
	if u, err := url.Parse(c.URL); err == nil && u.Scheme != "" && u.Host != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
		return u.String()
	}
	if isKeywordDSN(c.URL) {
		dsn := c.URL + " user=" + quoteKeyword(c.User)
		if c.Password != "" {
			dsn += " password=" + quoteKeyword(c.Password)
		}
		return dsn
	}
	return c.URL
}

// isKeywordDSN reports whether s starts with a libpq style key=value pair.
func isKeywordDSN(s string) bool {
	k, _, ok := strings.Cut(strings.TrimSpace(s), "=")
	return ok && k != "" && !strings.ContainsAny(k, ":/?@ ")
}

// quoteKeyword quotes a libpq keyword value when it contains spaces or quotes.
func quoteKeyword(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}
