package settings

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ronled86/ClipPilot/internal/model"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "settings.json"))
	if got := s.Load(); !reflect.DeepEqual(got, model.DefaultSettings()) {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := New(p).Load(); !reflect.DeepEqual(got, model.DefaultSettings()) {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "settings.json")
	want := model.DownloadSettings{
		DownloadFolder: filepath.Join(dir, "out"),
		DefaultFormat:  model.FormatMP3,
		DefaultQuality: "best",
		AudioFormat:    "flac",
		AudioBitrate:   "320k",
		VideoFormat:    "mkv",
		VideoQuality:   "1080p",
		VideoCodec:     "vp9",
		YouTubeAPIKey:  "key",
		Language:       "de",
	}
	if err := New(p).Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := New(p).Load(); !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if _, err := os.Stat(want.DownloadFolder); err != nil {
		t.Errorf("download folder not created: %v", err)
	}
}

func TestClearedLanguageSurvivesReload(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.json")
	v := model.DefaultSettings()
	v.DownloadFolder = filepath.Join(filepath.Dir(p), "out")
	v.Language = ""
	if err := New(p).Save(v); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := New(p).Load(); got.Language != "" {
		t.Errorf("Language = %q after reload, want cleared", got.Language)
	}
}

func TestLoadMergesDefaultsUnderPartialFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.json")
	// An older file without the video keys.
	if err := os.WriteFile(p, []byte(`{"downloadFolder":"/music","defaultFormat":"mp3","audioFormat":"ogg"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got := New(p).Load()
	want := model.DefaultSettings()
	want.DownloadFolder = "/music"
	want.DefaultFormat = model.FormatMP3
	want.AudioFormat = "ogg"
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestSetAndMerge(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "settings.json"))
	base := s.Current()
	base.DownloadFolder = filepath.Join(dir, "dl")
	if err := s.Save(base); err != nil {
		t.Fatal(err)
	}

	got, err := s.Set("videoQuality", "480p")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got.VideoQuality != "480p" || got.DownloadFolder != base.DownloadFolder {
		t.Errorf("Set result = %+v", got)
	}

	if _, err := s.Set("nope", "1"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set unknown key err = %v, want ErrUnknownKey", err)
	}
	if _, err := s.Set("defaultFormat", "wav"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Set invalid defaultFormat err = %v, want ErrInvalid", err)
	}
	if _, err := s.Set("audioBitrate", "loud"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Set invalid audioBitrate err = %v, want ErrInvalid", err)
	}

	got, err = s.Merge([]byte(`{"audioBitrate":"best"}`))
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got.AudioBitrate != "best" || got.VideoQuality != "480p" {
		t.Errorf("Merge result = %+v", got)
	}
	if reloaded := New(s.Path()).Load(); !reflect.DeepEqual(reloaded, got) {
		t.Errorf("reloaded = %+v, want %+v", reloaded, got)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 10 {
		t.Fatalf("Keys() = %v, want 10 entries", keys)
	}
	if v, ok := Get(model.DefaultSettings(), "youtubeApiKey"); !ok || v != "" {
		t.Errorf("Get(youtubeApiKey) = %q, %v", v, ok)
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{"": "", "abc": "****", "AIzaSyABCDEF": "********CDEF"}
	for in, want := range tests {
		if got := MaskKey(in); got != want {
			t.Errorf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}
