package model

import "time"

// JobStatus is the lifecycle state of a download job.
type JobStatus string

const (
	StatusPreparing   JobStatus = "preparing"
	StatusExtracting  JobStatus = "extracting"
	StatusDownloading JobStatus = "downloading"
	StatusConverting  JobStatus = "converting"
	StatusFinalizing  JobStatus = "finalizing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions follow.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// DownloadJob is the presentation-side record of one download.
type DownloadJob struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Format       MediaFormat `json:"format"`
	ActualFormat string      `json:"actualFormat"`
	Status       JobStatus   `json:"status"`
	Progress     float64     `json:"progress"`
	OutputPath   string      `json:"outputPath,omitempty"`
	Error        string      `json:"error,omitempty"`
	Message      string      `json:"message,omitempty"`
	StartTime    time.Time   `json:"startTime"`
}

// Overrides are per-job preferences that win over the saved settings.
// Empty fields fall through.
type Overrides struct {
	AudioFormat  string `json:"audioFormat,omitempty"`
	AudioBitrate string `json:"audioBitrate,omitempty"`
	VideoFormat  string `json:"videoFormat,omitempty"`
	VideoQuality string `json:"videoQuality,omitempty"`
	VideoCodec   string `json:"videoCodec,omitempty"`
	OutputFolder string `json:"outputFolder,omitempty"`
}

// Apply returns s with every non-empty override applied.
func (o Overrides) Apply(s DownloadSettings) DownloadSettings {
	if o.AudioFormat != "" {
		s.AudioFormat = o.AudioFormat
	}
	if o.AudioBitrate != "" {
		s.AudioBitrate = o.AudioBitrate
	}
	if o.VideoFormat != "" {
		s.VideoFormat = o.VideoFormat
	}
	if o.VideoQuality != "" {
		s.VideoQuality = o.VideoQuality
	}
	if o.VideoCodec != "" {
		s.VideoCodec = o.VideoCodec
	}
	if o.OutputFolder != "" {
		s.DownloadFolder = o.OutputFolder
	}
	return s
}
