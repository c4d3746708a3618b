package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/util/bitrate"
)

var (
	// ErrUnknownKey is returned by Set for a name that is not a settings field.
	ErrUnknownKey = errors.New("unknown settings key")
	// ErrInvalid is wrapped by every validation failure.
	ErrInvalid = errors.New("invalid settings")
)

// Store persists DownloadSettings as one JSON document. Last save wins.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	current model.DownloadSettings
	loaded  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a store backed by path. Nothing is read until first use.
func New(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Load reads the file and returns defaults merged under any saved values.
// A missing or unreadable file yields the defaults.
func (s *Store) Load() model.DownloadSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.readLocked()
	s.loaded = true
	return s.current
}

// Current returns the in-memory settings, loading them on first use.
func (s *Store) Current() model.DownloadSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.current = s.readLocked()
		s.loaded = true
	}
	return s.current
}

func (s *Store) readLocked() model.DownloadSettings {
	out := model.DefaultSettings()
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("settings unreadable, using defaults", slog.String("path", s.path), slog.String("err", err.Error()))
		}
		return out
	}
	// Unmarshal onto the defaults so absent keys keep their default value.
	merged := out
	if err := json.Unmarshal(b, &merged); err != nil {
		s.logger.Warn("settings corrupt, using defaults", slog.String("path", s.path), slog.String("err", err.Error()))
		return out
	}
	return merged
}

// Save writes v as the whole settings document and makes it current.
// The download folder is created best-effort.
func (s *Store) Save(v model.DownloadSettings) error {
	if err := Validate(v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(v); err != nil {
		return err
	}
	s.current = v
	s.loaded = true

	if v.DownloadFolder != "" {
		if err := os.MkdirAll(v.DownloadFolder, 0o755); err != nil {
			s.logger.Warn("create download folder", slog.String("path", v.DownloadFolder), slog.String("err", err.Error()))
		}
	}
	return nil
}

func (s *Store) writeLocked(v model.DownloadSettings) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Merge applies a partial JSON document over the current settings and
// saves the result.
func (s *Store) Merge(patch []byte) (model.DownloadSettings, error) {
	next := s.Current()
	if err := json.Unmarshal(patch, &next); err != nil {
		return model.DownloadSettings{}, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	if err := s.Save(next); err != nil {
		return model.DownloadSettings{}, err
	}
	return next, nil
}

// Set updates a single field by its JSON name.
func (s *Store) Set(key, value string) (model.DownloadSettings, error) {
	if _, ok := Get(s.Current(), key); !ok {
		return model.DownloadSettings{}, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownKey, key, Keys())
	}
	patch, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return model.DownloadSettings{}, err
	}
	return s.Merge(patch)
}

// Get returns a field by JSON name. Empty optional fields report "".
func Get(v model.DownloadSettings, key string) (string, bool) {
	if val, ok := asMap(v)[key]; ok {
		return val, true
	}
	for _, k := range Keys() {
		if k == key {
			return "", true
		}
	}
	return "", false
}

// Keys lists the settings field names in stable order.
func Keys() []string {
	full := model.DefaultSettings()
	full.YouTubeAPIKey = "x"
	keys := make([]string, 0, 10)
	for k := range asMap(full) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MaskKey keeps the last four characters of an API key.
func MaskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

func asMap(v model.DownloadSettings) map[string]string {
	b, _ := json.Marshal(v)
	m := map[string]string{}
	_ = json.Unmarshal(b, &m)
	return m
}

// Validate rejects values yt-dlp cannot be driven with.
func Validate(v model.DownloadSettings) error {
	switch v.DefaultFormat {
	case model.FormatMP3, model.FormatMP4:
	default:
		return fmt.Errorf("%w: defaultFormat %q (valid: mp3|mp4)", ErrInvalid, v.DefaultFormat)
	}
	if v.DownloadFolder == "" {
		return fmt.Errorf("%w: downloadFolder must not be empty", ErrInvalid)
	}
	if _, ok := bitrate.AudioQuality(v.AudioBitrate); ok && bitrate.Kbps(v.AudioBitrate) == 0 {
		return fmt.Errorf("%w: audioBitrate %q (want e.g. 192k or best)", ErrInvalid, v.AudioBitrate)
	}
	return nil
}
