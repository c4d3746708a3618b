package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/util"
)

type downloadOptions struct {
	audio     bool
	format    string
	title     string
	overrides model.Overrides
}

func newDownloadCmd() *cobra.Command {
	var opts downloadOptions
	cmd := &cobra.Command{
		Use:     "download <video-id|url>",
		Aliases: []string{"dl", "get"},
		Short:   "Download a video as MP4 or its audio as MP3",
		Example: `  clippilot download dQw4w9WgXcQ --audio
  clippilot download "https://youtu.be/dQw4w9WgXcQ" --quality 1080p
  clippilot download dQw4w9WgXcQ -a --audio-format flac -o ~/Music`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.mediaFormat()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			req, err := buildRequest(cmd.Context(), s.app, args[0], format, opts)
			if err != nil {
				return err
			}

			// Subscribe first so the preparing event is not missed.
			events, unsubscribe := s.app.Bus().Channel(64)
			defer unsubscribe()

			rc, err := s.app.Enqueue(req)
			if err != nil {
				return exitFor(err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, rc.Message)
			fmt.Fprintf(out, "Format: %s (%s)\n", rc.ActualFormat, rc.Quality)
			return waitJob(cmd.Context(), s.app, rc, events, newEventPrinter(out, isTerminal()))
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.audio, "audio", "a", false, "Audio only (same as --format mp3)")
	f.StringVarP(&opts.format, "format", "f", "", "mp3 or mp4 (default: saved defaultFormat)")
	f.StringVar(&opts.title, "title", "", "Title used for the file name when downloading a plain URL")
	bindOverrideFlags(f, &opts.overrides)
	cmd.MarkFlagsMutuallyExclusive("audio", "format")
	return cmd
}

// bindOverrideFlags registers the per-job settings overrides on fs.
func bindOverrideFlags(fs *pflag.FlagSet, o *model.Overrides) {
	fs.StringVar(&o.AudioFormat, "audio-format", "", "Audio codec: mp3, m4a, ogg, flac, wav, opus")
	fs.StringVar(&o.AudioBitrate, "bitrate", "", "Audio bitrate, e.g. 192k or best")
	fs.StringVar(&o.VideoFormat, "video-format", "", "Video container: mp4, webm, mkv")
	fs.StringVar(&o.VideoQuality, "quality", "", "Video quality, e.g. 720p or best")
	fs.StringVar(&o.VideoCodec, "codec", "", "Video codec: h264, vp9, av01 or best")
	fs.StringVarP(&o.OutputFolder, "out-dir", "o", "", "Output folder (default: saved downloadFolder)")
}

func (o downloadOptions) mediaFormat() (model.MediaFormat, error) {
	if o.audio {
		return model.FormatMP3, nil
	}
	switch f := model.MediaFormat(strings.ToLower(strings.TrimSpace(o.format))); f {
	case "", model.FormatMP3, model.FormatMP4:
		return f, nil
	default:
		return "", fmt.Errorf("invalid --format %q (valid: mp3|mp4)", o.format)
	}
}

type lookuper interface {
	Lookup(ctx context.Context, id string) (model.SearchResult, bool)
}

// buildRequest turns a video ID or URL into a download request. Known
// videos go by ID so the job carries the real title; anything else is
// handed to yt-dlp as a URL.
func buildRequest(ctx context.Context, l lookuper, target string, format model.MediaFormat, opts downloadOptions) (downloader.Request, error) {
	id, rawURL, err := util.ParseTarget(target)
	if err != nil {
		return downloader.Request{}, &ExitError{Code: ExitCLIError, Err: err}
	}
	req := downloader.Request{Format: format, Overrides: opts.overrides, Title: opts.title}
	if id != "" {
		if _, ok := l.Lookup(ctx, id); ok {
			req.VideoID = id
			return req, nil
		}
		if rawURL == "" {
			rawURL = model.WatchURL(id)
		}
	}
	req.URL = rawURL
	return req, nil
}

type canceller interface {
	Cancel(jobID string) bool
}

// waitJob follows the job's events until it ends. Interrupting ctx
// cancels the download and keeps waiting for the cancelled event.
func waitJob(ctx context.Context, c canceller, rc downloader.Receipt, events <-chan progress.Event, p *eventPrinter) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			done = nil
			if c.Cancel(rc.JobID) {
				p.note("Cancelling...")
			}
		case e, ok := <-events:
			if !ok {
				return &ExitError{Code: ExitCLIError, Err: errors.New("event stream closed")}
			}
			if e.JobID != rc.JobID {
				continue
			}
			p.print(e)
			if !e.Terminal() {
				continue
			}
			switch e.Status {
			case model.StatusCompleted:
				p.note("Saved: " + rc.OutputPath)
				return nil
			case model.StatusCancelled:
				msg := e.Message
				if e.Error != "" {
					msg += " (" + e.Error + ")"
				}
				return &ExitError{Code: ExitCancelled, Err: errors.New(msg)}
			default:
				return &ExitError{Code: ExitDownloadError, Err: fmt.Errorf("download failed: %s", e.Error)}
			}
		}
	}
}

// eventPrinter redraws a single status line on a terminal and prints
// one line per stage or 10% step otherwise.
type eventPrinter struct {
	out        io.Writer
	live       bool
	open       bool // a live line is on screen
	lastStatus model.JobStatus
	lastStep   int
}

func newEventPrinter(out io.Writer, live bool) *eventPrinter {
	return &eventPrinter{out: out, live: live, lastStep: -1}
}

func (p *eventPrinter) print(e progress.Event) {
	line := fmt.Sprintf("%-11s %5.1f%%", e.Status, e.Progress)
	if e.Message != "" {
		line += "  " + e.Message
	}
	if e.Error != "" {
		line += "  " + e.Error
	}
	if p.live {
		fmt.Fprintf(p.out, "\r\033[K%s", line)
		p.open = true
		if e.Terminal() {
			p.endLine()
		}
		return
	}
	step := int(e.Progress) / 10
	if e.Status == p.lastStatus && step == p.lastStep && !e.Terminal() {
		return
	}
	p.lastStatus, p.lastStep = e.Status, step
	fmt.Fprintln(p.out, line)
}

func (p *eventPrinter) note(s string) {
	p.endLine()
	fmt.Fprintln(p.out, s)
}

func (p *eventPrinter) endLine() {
	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}
