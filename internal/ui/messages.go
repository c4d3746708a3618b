package ui

import (
	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/progress"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

type pageMsg struct {
	Page     youtube.Page
	Err      error
	Append   bool
	Trending bool
	Query    string
}

type enqueuedMsg struct {
	Receipt downloader.Receipt
	Err     error
}

type jobEventMsg struct {
	E progress.Event
}

type previewMsg struct {
	P   app.Preview
	Err error
}

type flashMsg struct {
	Text string
	Err  error
}

type quitMsg struct{}
