package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string
		AppName  string

		FrontendBaseURL  string
		DefaultFromEmail string
		NotifyEmail      string

		RollbarToken   string
		SendgridApiKey string

		Server   ServerConfig
		Upstream UpstreamConfig
		Cache    CacheConfig
		Outbox   OutboxConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	UpstreamConfig struct {
		AppOrigin string
		APIOrigin string
		// FetchTimeout bounds network-first fetches before the cache
		// fallback engages. Zero means no bound.
		FetchTimeout time.Duration
	}

	CacheConfig struct {
		Prefix      string
		Version     string
		Path        string
		AppShell    string
		Precache    []string
		SkipWaiting bool
	}

	OutboxConfig struct {
		Tag string
		// Engine selects the queue store: bolt (default), postgres or inmem.
		Engine string
		Path   string
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Protextify Edge")
	v.SetDefault("build", "dev")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@protextify.localhost")
	v.SetDefault("notifyEmail", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:6060")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("upstream.appOrigin", "http://localhost:3000")
	v.SetDefault("upstream.apiOrigin", "http://localhost:5000")
	v.SetDefault("upstream.fetchTimeout", time.Duration(0))

	v.SetDefault("cache.prefix", "protextify")
	v.SetDefault("cache.version", "v3")
	v.SetDefault("cache.path", "data/cache.db")
	v.SetDefault("cache.appShell", "/index.html")
	v.SetDefault("cache.precache", []string{
		"/index.html",
		"/manifest.json",
		"/vite.svg",
		"/icons/icon-192.png",
		"/icons/icon-512.png",
	})
	v.SetDefault("cache.skipWaiting", true)

	v.SetDefault("outbox.tag", "auto-save-submission")
	v.SetDefault("outbox.engine", "bolt")
	v.SetDefault("outbox.path", "data/outbox.db")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "protextify_edge")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.disableTLS", true)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}

// DefaultFromEmailAddr parses Config.DefaultFromEmail into a mail.Address,
// falling back to a bare address on parse failure.
func (c *Config) DefaultFromEmailAddr() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
	}
	return *addr
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
