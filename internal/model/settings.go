package model

import (
	"os"
	"path/filepath"
)

// MediaFormat is the user-facing download kind.
type MediaFormat string

const (
	FormatMP3 MediaFormat = "mp3" // audio
	FormatMP4 MediaFormat = "mp4" // video
)

// IsAudio reports whether the format selects the audio path.
func (f MediaFormat) IsAudio() bool { return f == FormatMP3 }

// DownloadSettings holds the persisted user preferences.
// JSON names match the settings file written by earlier releases.
type DownloadSettings struct {
	DownloadFolder string      `json:"downloadFolder"`
	DefaultFormat  MediaFormat `json:"defaultFormat"`
	DefaultQuality string      `json:"defaultQuality"`
	AudioFormat    string      `json:"audioFormat"`  // mp3, m4a, ogg, flac, wav, opus
	AudioBitrate   string      `json:"audioBitrate"` // e.g. 192k or best
	VideoFormat    string      `json:"videoFormat"`  // container: mp4, webm, mkv
	VideoQuality   string      `json:"videoQuality"` // e.g. 720p or best
	VideoCodec     string      `json:"videoCodec"`   // h264, vp9, av01 or best
	YouTubeAPIKey  string      `json:"youtubeApiKey,omitempty"`
	Language       string      `json:"language"`
}

// DefaultDownloadFolder is ~/Downloads/ClipPilot, or a relative folder if
// the home directory cannot be resolved.
func DefaultDownloadFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("Downloads", "ClipPilot")
	}
	return filepath.Join(home, "Downloads", "ClipPilot")
}

// DefaultSettings returns the built-in preferences.
func DefaultSettings() DownloadSettings {
	return DownloadSettings{
		DownloadFolder: DefaultDownloadFolder(),
		DefaultFormat:  FormatMP4,
		DefaultQuality: "best",
		AudioFormat:    "mp3",
		AudioBitrate:   "192k",
		VideoFormat:    "mp4",
		VideoQuality:   "720p",
		VideoCodec:     "h264",
		Language:       "en",
	}
}
