package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ariebrainware/physio-pain-assessment/gateway"
	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	StorageBadger   = "badger"
	StorageRedis    = "redis"
	StorageDatabase = "database"
)

const (
	defaultAIRateLimit   = 20
	defaultAIRateWindow  = time.Minute
	defaultBadgerDir     = "data/history"
	defaultSQLitePath    = "physio.db"
	defaultLogDir        = "logs"
	defaultAppPort       = 8080
	defaultStorageOption = StorageBadger
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBDriver   string `json:"dbdriver"`
	DBHost     string `json:"dbhost"`
	DBPort     uint16 `json:"dbport"`
	DBName     string `json:"dbname"`
	DBUSER     string `json:"dbuser"`
	DBPass     string `json:"dbpass"`
	SQLitePath string `json:"sqlitepath"`

	GeminiAPIKey string `json:"-"`
	GeminiModel  string `json:"geminimodel"`

	StorageBackend string `json:"storagebackend"`
	BadgerDir      string `json:"badgerdir"`

	LogDir      string `json:"logdir"`
	GeoIPDBPath string `json:"geoipdbpath"`

	AIRateLimit  int           `json:"airatelimit"`
	AIRateWindow time.Duration `json:"airatewindow"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
// A missing .env file is not fatal: the process environment is used as is.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Error loading .env file: %v", err)
		}
		config = fromEnv()
	})
	return config
}

// ResetConfigForTest drops the cached configuration so the next LoadConfig re-reads the environment.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

func fromEnv() *Config {
	appPort := parseUint16(os.Getenv("APPPORT"), defaultAppPort)
	dbPort := parseUint16(os.Getenv("DBPORT"), 3306)

	window := defaultAIRateWindow
	if v := os.Getenv("AI_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			window = d
		}
	}
	limit := defaultAIRateLimit
	if v := os.Getenv("AI_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	return &Config{
		AppName:        getEnv("APPNAME", "Physio Pain Assessment"),
		AppEnv:         os.Getenv("APPENV"),
		AppPort:        appPort,
		GinMode:        getEnv("GINMODE", "debug"),
		DBDriver:       getEnv("DBDRIVER", "sqlite"),
		DBHost:         os.Getenv("DBHOST"),
		DBPort:         dbPort,
		DBName:         os.Getenv("DBNAME"),
		DBUSER:         os.Getenv("DBUSER"),
		DBPass:         os.Getenv("DBPASS"),
		SQLitePath:     getEnv("SQLITE_PATH", defaultSQLitePath),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", gateway.DefaultModel),
		StorageBackend: getEnv("STORAGE_BACKEND", defaultStorageOption),
		BadgerDir:      getEnv("BADGER_DIR", defaultBadgerDir),
		LogDir:         getEnv("LOG_DIR", defaultLogDir),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		AIRateLimit:    limit,
		AIRateWindow:   window,
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseUint16(s string, fallback uint16) uint16 {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil || v == 0 {
		return fallback
	}
	return uint16(v)
}

// IsTest reports whether the application runs with APPENV=test.
func (c *Config) IsTest() bool {
	return c != nil && c.AppEnv == "test"
}

// HasGeminiCredential reports whether an API key for the AI service is configured.
func (c *Config) HasGeminiCredential() bool {
	return c != nil && c.GeminiAPIKey != ""
}

// ConnectDatabase opens the gorm connection used for the event log and, when selected, the history store.
// In the test environment an in-memory sqlite database is used regardless of DBDRIVER.
func ConnectDatabase() (*gorm.DB, error) {
	cfg := LoadConfig()
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if cfg.IsTest() {
		dsn := fmt.Sprintf("file:physio_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	}

	switch cfg.DBDriver {
	case "mysql":
		// Build the Data Source Name (DSN) using the configuration values.
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUSER, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return gorm.Open(mysql.Open(dsn), gormCfg)
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DBDRIVER %q", cfg.DBDriver)
	}
}
