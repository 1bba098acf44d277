package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Auth
		Catalog
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path  string
		Debug bool // Log every SQL statement
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		// Failed logins per IP and username before a lockout; 0 disables.
		LoginMaxAttempts int
		LoginLockout     time.Duration
	}
	Catalog struct {
		PageSize int
		// EditRequiresPermission gates author/book create, update and delete
		// behind the can_edit_catalog permission.
		EditRequiresPermission bool
		// StrictTransitions enforces the loan status transition table.
		StrictTransitions bool
	}
)

// LoadDotEnv copies the variables in a .env file into the process
// environment. Variables that are already set win. A missing file is ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func NewConfig() *Config {
	return newConfig(viper.New())
}

func newConfig(v *viper.Viper) *Config {
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_debug", false)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_login_max_attempts", 5)
	v.SetDefault("auth_login_lockout", "15m")

	// Catalog defaults
	v.SetDefault("catalog_page_size", DefaultPageSize)
	v.SetDefault("catalog_edit_requires_permission", true)
	v.SetDefault("loan_strict_transitions", false)

	cfg := &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:  v.GetString("DATABASE_PATH"),
			Debug: v.GetBool("DATABASE_DEBUG"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Auth: Auth{
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),

			LoginMaxAttempts: v.GetInt("AUTH_LOGIN_MAX_ATTEMPTS"),
			LoginLockout:     v.GetDuration("AUTH_LOGIN_LOCKOUT"),
		},
		Catalog: Catalog{
			PageSize:               v.GetInt("CATALOG_PAGE_SIZE"),
			EditRequiresPermission: v.GetBool("CATALOG_EDIT_REQUIRES_PERMISSION"),
			StrictTransitions:      v.GetBool("LOAN_STRICT_TRANSITIONS"),
		},
	}

	if cfg.Catalog.PageSize <= 0 {
		cfg.Catalog.PageSize = DefaultPageSize
	}

	return cfg
}
