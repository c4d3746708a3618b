package downloader

import (
	"path/filepath"
	"strings"

	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/util/bitrate"
)

// OutputTemplate is the yt-dlp file name template inside the output folder.
const OutputTemplate = "%(title)s.%(ext)s"

// Target is what to download. URL wins over ID when both are set.
type Target struct {
	ID  string
	URL string
}

// SourceURL returns the URL passed to yt-dlp.
func (t Target) SourceURL() string {
	if t.URL != "" {
		return t.URL
	}
	return model.WatchURL(t.ID)
}

// yt-dlp codec names for user-facing audio formats that differ.
var audioCodec = map[string]string{
	"ogg": "vorbis",
	"m4a": "aac",
}

// Formats whose default container extension is not the desired one.
var audioExtOverride = map[string]string{
	"m4a": "m4a",
}

// IsLossless reports audio formats for which a bitrate is meaningless.
func IsLossless(format string) bool {
	switch strings.ToLower(format) {
	case "flac", "wav":
		return true
	}
	return false
}

// Builder assembles yt-dlp arguments. LocateFFmpeg returns the folder of a
// bundled ffmpeg; nil or false means yt-dlp searches PATH itself.
type Builder struct {
	OutputDir    string
	LocateFFmpeg func() (dir string, ok bool)
}

// BuildArgs returns the argument list for one download. It does no I/O
// beyond the injected ffmpeg lookup.
func (b Builder) BuildArgs(target Target, format model.MediaFormat, s model.DownloadSettings) []string {
	dir := b.OutputDir
	if dir == "" {
		dir = s.DownloadFolder
	}
	args := []string{
		target.SourceURL(),
		"-o", filepath.Join(dir, OutputTemplate),
	}
	if b.LocateFFmpeg != nil {
		if ffdir, ok := b.LocateFFmpeg(); ok {
			args = append(args, "--ffmpeg-location", ffdir)
		}
	}
	if format.IsAudio() {
		return append(args, audioArgs(s)...)
	}
	return append(args, videoArgs(s)...)
}

func audioArgs(s model.DownloadSettings) []string {
	af := strings.ToLower(s.AudioFormat)
	if af == "" {
		af = "mp3"
	}
	codec := af
	if c, ok := audioCodec[af]; ok {
		codec = c
	}
	args := []string{"--extract-audio", "--audio-format", codec}
	if ext, ok := audioExtOverride[af]; ok {
		args = append(args, "--audio-ext", ext)
	}
	if IsLossless(af) {
		return args
	}
	br := s.AudioBitrate
	if br == "" {
		br = "192k"
	}
	if q, ok := bitrate.AudioQuality(br); ok {
		args = append(args, "--audio-quality", q)
	}
	return args
}

func videoArgs(s model.DownloadSettings) []string {
	quality := strings.ToLower(s.VideoQuality)
	if quality == "" {
		quality = "720p"
	}
	codec := s.VideoCodec
	if codec == "" {
		codec = "h264"
	}
	container := strings.ToLower(s.VideoFormat)
	if container == "" {
		container = "mp4"
	}

	var args []string
	switch {
	case quality == "best":
		args = append(args, "--format", "best")
	case strings.EqualFold(codec, "best"):
		h := strings.TrimSuffix(quality, "p")
		args = append(args, "--format", "best[height<="+h+"]")
	default:
		h := strings.TrimSuffix(quality, "p")
		args = append(args, "--format", "best[height<="+h+"][vcodec*="+codec+"]/best[height<="+h+"]")
	}
	if container != "mp4" {
		args = append(args, "--merge-output-format", container)
	}
	return args
}

// ActualFormat is the file extension the download ends up with.
func ActualFormat(format model.MediaFormat, s model.DownloadSettings) string {
	if format.IsAudio() {
		if s.AudioFormat == "" {
			return "mp3"
		}
		return strings.ToLower(s.AudioFormat)
	}
	if s.VideoFormat == "" {
		return "mp4"
	}
	return strings.ToLower(s.VideoFormat)
}

// Quality is the human-readable quality reported for a job.
func Quality(format model.MediaFormat, s model.DownloadSettings) string {
	if format.IsAudio() {
		if IsLossless(s.AudioFormat) {
			return "lossless"
		}
		if s.AudioBitrate == "" {
			return "best"
		}
		return s.AudioBitrate
	}
	if s.VideoQuality == "" {
		return "best"
	}
	return s.VideoQuality
}
