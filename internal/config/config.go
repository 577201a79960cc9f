// Package config wires viper to flags, environment, .env and the config file,
// and turns the result into a typed Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tgvidbot/internal/dirs"
	"tgvidbot/internal/platform"
)

const envPrefix = "TGVIDBOT"

// Extraction backends selectable per platform.
const (
	BackendYTDLP  = "ytdlp"
	BackendNative = "native"
)

// Telegram holds Bot API connection settings.
type Telegram struct {
	Token string
	// APIURL points at a local Bot API server; empty uses api.telegram.org.
	APIURL string
	Debug  bool
}

// Proxy is the outbound proxy shared by every backend unless a platform
// overrides it.
type Proxy struct {
	URL     string
	NoProxy []string
}

// Platform holds per-platform extraction overrides.
type Platform struct {
	Proxy   string
	Cookies string
	Backend string
}

type Log struct {
	Level       string
	Development bool
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Telegram        Telegram
	DBPath          string
	DLBinary        string
	TempDir         string
	ExtractWorkers  int
	DownloadWorkers int
	CacheTTL        time.Duration
	CacheMaxEntries int
	SingleFlight    bool
	ExtractTimeout  time.Duration
	SocketTimeout   int
	Retries         int
	MaxUploadMB     int
	Proxy           Proxy
	Platforms       map[platform.ID]Platform
	// Admins are Telegram user ids granted /admin and /broadcast.
	Admins          []int64
	Log             Log
	Verbose         bool
}

// ErrMissingToken is returned by Validate when the bot token is required.
var ErrMissingToken = errors.New("telegram token is not set (TGVIDBOT_TELEGRAM_TOKEN or BOT_TOKEN)")

// Init wires the global viper with config paths, .env, env vars, defaults
// and flag bindings. Missing files are not an error.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.AddConfigPath(".")
	viper.SetConfigName("config") // config.{yaml|yml|json|toml}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(viper.GetViper())
	BindEnv(viper.GetViper())

	flags := root.PersistentFlags()
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("dl_binary", flags.Lookup("dl-binary"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("db.path", flags.Lookup("db"))

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// BindEnv maps TGVIDBOT_* variables onto keys, plus the bare names the
// Python deployment used.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", envPrefix+"_TELEGRAM_TOKEN", "BOT_TOKEN")
	_ = v.BindEnv("telegram.api_url", envPrefix+"_TELEGRAM_API_URL", "LOCAL_API_URL")
	_ = v.BindEnv("admins", envPrefix+"_ADMINS", "ADMIN_IDS")
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	dbPath, err := dirs.DatabasePath()
	if err != nil {
		dbPath = "tgvidbot.db"
	}
	tempDir, err := dirs.TempBaseDir()
	if err != nil {
		tempDir = os.TempDir()
	}
	v.SetDefault("db.path", dbPath)
	v.SetDefault("temp_dir", tempDir)
	v.SetDefault("workers.extract", 4)
	v.SetDefault("workers.download", 2)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("resolve.single_flight", true)
	v.SetDefault("extract.timeout", 90*time.Second)
	v.SetDefault("extract.socket_timeout", 30)
	v.SetDefault("extract.retries", 5)
	v.SetDefault("max_upload_mb", 2000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("platforms.youtube.backend", BackendYTDLP)
}

// Load builds a Config from the global viper.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds a Config from v.
func LoadFrom(v *viper.Viper) (Config, error) {
	cfg := Config{
		Telegram: Telegram{
			Token:  strings.TrimSpace(v.GetString("telegram.token")),
			APIURL: strings.TrimRight(v.GetString("telegram.api_url"), "/"),
			Debug:  v.GetBool("telegram.debug"),
		},
		DBPath:          v.GetString("db.path"),
		DLBinary:        v.GetString("dl_binary"),
		TempDir:         v.GetString("temp_dir"),
		ExtractWorkers:  v.GetInt("workers.extract"),
		DownloadWorkers: v.GetInt("workers.download"),
		CacheTTL:        v.GetDuration("cache.ttl"),
		CacheMaxEntries: v.GetInt("cache.max_entries"),
		SingleFlight:    v.GetBool("resolve.single_flight"),
		ExtractTimeout:  v.GetDuration("extract.timeout"),
		SocketTimeout:   v.GetInt("extract.socket_timeout"),
		Retries:         v.GetInt("extract.retries"),
		MaxUploadMB:     v.GetInt("max_upload_mb"),
		Proxy: Proxy{
			URL:     v.GetString("proxy.url"),
			NoProxy: splitList(v.Get("proxy.no_proxy")),
		},
		Platforms: make(map[platform.ID]Platform),
		Log: Log{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		Verbose: v.GetBool("verbose"),
	}

	for _, raw := range splitList(v.Get("admins")) {
		id, err := cast.ToInt64E(raw)
		if err != nil || id <= 0 {
			return Config{}, fmt.Errorf("admins: invalid user id %q", raw)
		}
		cfg.Admins = append(cfg.Admins, id)
	}

	for _, id := range platform.IDs() {
		key := "platforms." + string(id)
		p := Platform{
			Proxy:   v.GetString(key + ".proxy"),
			Cookies: v.GetString(key + ".cookies"),
			Backend: strings.ToLower(v.GetString(key + ".backend")),
		}
		if p.Backend == "" {
			p.Backend = BackendYTDLP
		}
		if p.Backend != BackendYTDLP && !(p.Backend == BackendNative && id == platform.YouTube) {
			return Config{}, fmt.Errorf("platforms.%s.backend: unsupported backend %q", id, p.Backend)
		}
		cfg.Platforms[id] = p
	}

	if cfg.ExtractWorkers <= 0 || cfg.DownloadWorkers <= 0 {
		return Config{}, fmt.Errorf("workers must be positive (extract=%d, download=%d)", cfg.ExtractWorkers, cfg.DownloadWorkers)
	}
	if cfg.MaxUploadMB <= 0 {
		return Config{}, fmt.Errorf("max_upload_mb must be positive, got %d", cfg.MaxUploadMB)
	}
	return cfg, nil
}

// Validate checks settings that only some commands need.
func (c Config) Validate(requireToken bool) error {
	if requireToken && c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// ProxyFor returns the proxy a platform's backend should use.
func (c Config) ProxyFor(id platform.ID) string {
	if p, ok := c.Platforms[id]; ok && p.Proxy != "" {
		return p.Proxy
	}
	return c.Proxy.URL
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// splitList accepts a YAML list or a comma separated env string.
func splitList(v any) []string {
	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = cast.ToStringSlice(v)
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
