package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	c := FromViper(v)

	if c.RegionCode != "US" || c.TrendingCategory != "10" {
		t.Errorf("region/category = %q/%q, want US/10", c.RegionCode, c.TrendingCategory)
	}
	if c.SearchPageSize != 12 || c.TrendingPageSize != 20 {
		t.Errorf("page sizes = %d/%d, want 12/20", c.SearchPageSize, c.TrendingPageSize)
	}
	if c.JobTimeout != 10*time.Minute {
		t.Errorf("JobTimeout = %v, want 10m", c.JobTimeout)
	}
	want := StageProgress{Extracting: 20, FormatSelection: 50, Converting: 30, Finalizing: 90}
	if c.Stages != want {
		t.Errorf("Stages = %+v, want %+v", c.Stages, want)
	}
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyJobTimeout, "90s")
	v.Set(KeyCacheSize, -4)
	v.Set(KeyAPIKey, "  abc  ")
	v.Set(KeyStageConverting, 45)

	c := FromViper(v)
	if c.JobTimeout != 90*time.Second {
		t.Errorf("JobTimeout = %v, want 90s", c.JobTimeout)
	}
	if c.CacheSize != 500 {
		t.Errorf("CacheSize = %d, want fallback 500", c.CacheSize)
	}
	if c.APIKey != "abc" {
		t.Errorf("APIKey = %q, want trimmed", c.APIKey)
	}
	if c.Stages.Converting != 45 {
		t.Errorf("Converting = %v, want 45", c.Stages.Converting)
	}
}

func TestAllowedOrigins(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	if got := FromViper(v).AllowedOrigins; !reflect.DeepEqual(got, DefaultAllowedOrigins) {
		t.Errorf("default AllowedOrigins = %v", got)
	}

	// Env values arrive as one space-separated string.
	v.Set(KeyAllowedOrigins, "http://localhost:3000 https://app.example.com")
	want := []string{"http://localhost:3000", "https://app.example.com"}
	if got := FromViper(v).AllowedOrigins; !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins = %v, want %v", got, want)
	}
}
