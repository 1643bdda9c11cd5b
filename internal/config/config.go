// Package config centralizes all application configuration into typed structs
// loaded from config/<env>.yaml.
//
// Go Learning Note — Configuration Management:
// Typed structs (not raw strings/maps) give you compile-time safety and IDE
// autocompletion. The YAML file only fills the structs; defaults live in
// NewDefaultConfig and checks in Validate, so a missing key never turns into
// a silent zero value deep inside the service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverRedis     = "redis"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverMongo     = "mongo"
)

// Auth modes.
const (
	AuthMock     = "mock"
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
)

// Empty requester tag policies.
const (
	PolicyMatchAll  = "match_all"
	PolicyMatchNone = "match_none"
)

// Config is the top-level configuration container.
//
// Go Learning Note — Struct Composition:
// Go doesn't have classes or inheritance. Instead, you compose structs by
// nesting them. Config "has a" HTTPConfig, StoreConfig, etc., and each section
// maps to one YAML block.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Geo      GeoConfig      `yaml:"geo"`
	Match    MatchConfig    `yaml:"match"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
//
// Go Learning Note — time.Duration:
// yaml.v3 decodes strings such as "10s" straight into time.Duration fields,
// so the file stays readable and the code never guesses units.
type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// StoreConfig selects the location store and carries per-driver settings.
type StoreConfig struct {
	Driver    string          `yaml:"driver"` // memory, redis, firestore, postgres, mongo
	Redis     RedisConfig     `yaml:"redis"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
}

type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

type FirestoreConfig struct {
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// FirebaseConfig is shared by the Firestore store and Firebase token auth.
// An empty CredentialsFile means application default credentials.
type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// GeoConfig controls the stored geohash precision. Precision 10 cells are
// about 1.2 m x 0.6 m; range scans never use more characters than this.
type GeoConfig struct {
	Precision int `yaml:"precision"`
}

// MatchConfig controls the nearby query pipeline.
type MatchConfig struct {
	DefaultRadiusMeters float64       `yaml:"default_radius_m"`
	MaxRadiusMeters     float64       `yaml:"max_radius_m"`
	ScanTimeout         time.Duration `yaml:"scan_timeout"`
	MaxConcurrentScans  int           `yaml:"max_concurrent_scans"`
	EmptyTagsPolicy     string        `yaml:"empty_tags_policy"` // match_all, match_none
	RequireTags         *bool         `yaml:"require_tags"`
}

// TagsRequired reports whether candidates must share at least one tag.
func (m MatchConfig) TagsRequired() bool {
	return m.RequireTags == nil || *m.RequireTags
}

// CacheConfig sizes the profile cache. Size 0 disables it.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// AuthConfig selects how bearer tokens are verified.
type AuthConfig struct {
	Mode      string `yaml:"mode"` // mock, jwt, firebase
	JWTSecret string `yaml:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// NewDefaultConfig returns a Config populated with sensible defaults.
//
// Go Learning Note — Constructor Functions:
// Go has no constructors. By convention, New<Type>() functions serve the same
// purpose. They return a pointer (*Config) so the caller gets a reference to
// shared, mutable state.
func NewDefaultConfig() *Config {
	requireTags := true
	return &Config{
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis:  RedisConfig{KeyPrefix: "{nearby}:"},
			Firestore: FirestoreConfig{
				Collection: "locations",
			},
			Mongo: MongoConfig{
				Database:   "nearby",
				Collection: "locations",
			},
		},
		Geo: GeoConfig{
			Precision: 10,
		},
		Match: MatchConfig{
			DefaultRadiusMeters: 5000,
			MaxRadiusMeters:     50000,
			ScanTimeout:         8 * time.Second,
			MaxConcurrentScans:  4,
			EmptyTagsPolicy:     PolicyMatchAll,
			RequireTags:         &requireTags,
		},
		Cache: CacheConfig{
			Size: 10000,
			TTL:  time.Minute,
		},
		Auth: AuthConfig{
			Mode: AuthMock,
		},
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields from NewDefaultConfig.
func (c *Config) ApplyDefaults() {
	d := NewDefaultConfig()

	if c.HTTP.Port == 0 {
		c.HTTP.Port = d.HTTP.Port
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = d.HTTP.ReadTimeout
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = d.HTTP.WriteTimeout
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = d.HTTP.ShutdownTimeout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = d.Store.Redis.KeyPrefix
	}
	if c.Store.Firestore.Collection == "" {
		c.Store.Firestore.Collection = d.Store.Firestore.Collection
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = d.Store.Mongo.Database
	}
	if c.Store.Mongo.Collection == "" {
		c.Store.Mongo.Collection = d.Store.Mongo.Collection
	}
	if c.Geo.Precision == 0 {
		c.Geo.Precision = d.Geo.Precision
	}
	if c.Match.DefaultRadiusMeters == 0 {
		c.Match.DefaultRadiusMeters = d.Match.DefaultRadiusMeters
	}
	if c.Match.MaxRadiusMeters == 0 {
		c.Match.MaxRadiusMeters = d.Match.MaxRadiusMeters
	}
	if c.Match.ScanTimeout <= 0 {
		c.Match.ScanTimeout = d.Match.ScanTimeout
	}
	if c.Match.MaxConcurrentScans <= 0 {
		c.Match.MaxConcurrentScans = d.Match.MaxConcurrentScans
	}
	if c.Match.EmptyTagsPolicy == "" {
		c.Match.EmptyTagsPolicy = d.Match.EmptyTagsPolicy
	}
	if c.Match.RequireTags == nil {
		c.Match.RequireTags = d.Match.RequireTags
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = d.Auth.Mode
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Store.Redis.Addrs) == 0 {
			return fmt.Errorf("store.redis.addrs is required")
		}
	case DriverFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for the firestore driver")
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("store.mongo.uri is required")
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, redis, firestore, postgres, mongo, got %q", c.Store.Driver)
	}

	if c.Geo.Precision < 1 || c.Geo.Precision > 12 {
		return fmt.Errorf("geo.precision must be between 1 and 12, got %d", c.Geo.Precision)
	}
	if c.Match.DefaultRadiusMeters <= 0 {
		return fmt.Errorf("match.default_radius_m must be positive, got %v", c.Match.DefaultRadiusMeters)
	}
	if c.Match.MaxRadiusMeters < c.Match.DefaultRadiusMeters {
		return fmt.Errorf("match.max_radius_m (%v) must not be below match.default_radius_m (%v)",
			c.Match.MaxRadiusMeters, c.Match.DefaultRadiusMeters)
	}
	switch c.Match.EmptyTagsPolicy {
	case PolicyMatchAll, PolicyMatchNone:
	default:
		return fmt.Errorf("match.empty_tags_policy must be %q or %q, got %q",
			PolicyMatchAll, PolicyMatchNone, c.Match.EmptyTagsPolicy)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size)
	}

	switch c.Auth.Mode {
	case AuthMock:
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret is required for jwt auth")
		}
	case AuthFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("firebase.project_id is required for firebase auth")
		}
	default:
		return fmt.Errorf("auth.mode must be one of mock, jwt, firebase, got %q", c.Auth.Mode)
	}
	return nil
}

// Addr returns the listen address for http.Server.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
