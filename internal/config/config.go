package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ronled86/ClipPilot/internal/dirs"
)

// Keys shared by flags, env and config file.
const (
	KeyVerbose          = "verbose"
	KeyDLBinary         = "dl_binary"
	KeyToolsDir         = "tools_dir"
	KeyLogDir           = "log_dir"
	KeySettingsPath     = "settings_path"
	KeyAPIKey           = "youtube_api_key"
	KeyRegionCode       = "region_code"
	KeyTrendingCategory = "trending_category"
	KeySearchPageSize   = "search_page_size"
	KeyTrendingPageSize = "trending_page_size"
	KeyJobTimeout       = "job_timeout"
	KeyCacheSize        = "cache_size"
	KeyListen           = "listen"
	KeyAllowedOrigins   = "allowed_origins"

	KeyStageExtracting      = "stage_progress.extracting"
	KeyStageFormatSelection = "stage_progress.format_selection"
	KeyStageConverting      = "stage_progress.converting"
	KeyStageFinalizing      = "stage_progress.finalizing"
)

// DefaultAllowedOrigins admits pages served from this machine only.
var DefaultAllowedOrigins = []string{
	"http://localhost",
	"http://localhost:*",
	"http://127.0.0.1",
	"http://127.0.0.1:*",
	"http://[::1]",
	"http://[::1]:*",
}

// StageProgress holds the heuristic percentages shown for phases that
// yt-dlp does not measure.
type StageProgress struct {
	Extracting      float64
	FormatSelection float64
	Converting      float64
	Finalizing      float64
}

// Config is the operator configuration resolved from flags, env and file.
type Config struct {
	Verbose          bool
	DLBinary         string
	ToolsDir         string
	LogDir           string
	SettingsPath     string
	APIKey           string
	RegionCode       string
	TrendingCategory string
	SearchPageSize   int64
	TrendingPageSize int64
	JobTimeout       time.Duration
	CacheSize        int
	Listen           string
	AllowedOrigins   []string // browser origins the API answers; one * wildcard each
	Stages           StageProgress
}

// SetDefaults registers built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyDLBinary, "")
	v.SetDefault(KeyToolsDir, dirs.ToolsDir())
	if p, err := dirs.LogDir(); err == nil {
		v.SetDefault(KeyLogDir, p)
	}
	if p, err := dirs.SettingsPath(); err == nil {
		v.SetDefault(KeySettingsPath, p)
	}
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyRegionCode, "US")
	v.SetDefault(KeyTrendingCategory, "10")
	v.SetDefault(KeySearchPageSize, 12)
	v.SetDefault(KeyTrendingPageSize, 20)
	v.SetDefault(KeyJobTimeout, 10*time.Minute)
	v.SetDefault(KeyCacheSize, 500)
	v.SetDefault(KeyListen, "127.0.0.1:5174")
	v.SetDefault(KeyAllowedOrigins, DefaultAllowedOrigins)

	v.SetDefault(KeyStageExtracting, 20)
	v.SetDefault(KeyStageFormatSelection, 50)
	v.SetDefault(KeyStageConverting, 30)
	v.SetDefault(KeyStageFinalizing, 90)
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: a missing config file is not an error.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: CLIPPILOT_*
	viper.SetEnvPrefix("CLIPPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	// The plain variable used by earlier releases still works.
	_ = viper.BindEnv(KeyAPIKey, "CLIPPILOT_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")

	SetDefaults(viper.GetViper())

	pf := root.PersistentFlags()
	_ = viper.BindPFlag(KeyVerbose, pf.Lookup("verbose"))
	_ = viper.BindPFlag(KeyDLBinary, pf.Lookup("dl-binary"))
	_ = viper.BindPFlag(KeyToolsDir, pf.Lookup("tools-dir"))
	_ = viper.BindPFlag(KeyAPIKey, pf.Lookup("api-key"))
	_ = viper.BindPFlag(KeySettingsPath, pf.Lookup("settings"))

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load resolves the current values from the global Viper instance.
func Load() Config {
	return FromViper(viper.GetViper())
}

// FromViper resolves a Config from v.
func FromViper(v *viper.Viper) Config {
	c := Config{
		Verbose:          v.GetBool(KeyVerbose),
		DLBinary:         v.GetString(KeyDLBinary),
		ToolsDir:         v.GetString(KeyToolsDir),
		LogDir:           v.GetString(KeyLogDir),
		SettingsPath:     v.GetString(KeySettingsPath),
		APIKey:           strings.TrimSpace(v.GetString(KeyAPIKey)),
		RegionCode:       v.GetString(KeyRegionCode),
		TrendingCategory: v.GetString(KeyTrendingCategory),
		SearchPageSize:   v.GetInt64(KeySearchPageSize),
		TrendingPageSize: v.GetInt64(KeyTrendingPageSize),
		JobTimeout:       v.GetDuration(KeyJobTimeout),
		CacheSize:        v.GetInt(KeyCacheSize),
		Listen:           v.GetString(KeyListen),
		AllowedOrigins:   v.GetStringSlice(KeyAllowedOrigins),
		Stages: StageProgress{
			Extracting:      v.GetFloat64(KeyStageExtracting),
			FormatSelection: v.GetFloat64(KeyStageFormatSelection),
			Converting:      v.GetFloat64(KeyStageConverting),
			Finalizing:      v.GetFloat64(KeyStageFinalizing),
		},
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 500
	}
	return c
}
