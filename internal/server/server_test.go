package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ronled86/ClipPilot/internal/app"
	"github.com/ronled86/ClipPilot/internal/config"
	"github.com/ronled86/ClipPilot/internal/downloader"
	"github.com/ronled86/ClipPilot/internal/model"
	"github.com/ronled86/ClipPilot/internal/util"
	"github.com/ronled86/ClipPilot/internal/youtube"
)

type nopOpener struct{}

func (nopOpener) OpenURL(string) error    { return nil }
func (nopOpener) RevealFile(string) error { return nil }

type holdProcess struct{ exit chan util.Exit }

func (p *holdProcess) Wait() util.Exit { return <-p.exit }
func (p *holdProcess) Kill() error {
	select {
	case p.exit <- util.Exit{Code: -1, Killed: true}:
	default:
	}
	return nil
}
func (p *holdProcess) Pid() int { return 1 }

type holdRunner struct{}

func (holdRunner) Start(util.CmdSpec) (util.Process, error) {
	return &holdProcess{exit: make(chan util.Exit, 1)}, nil
}

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *app.App) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	a := app.New(config.Config{
		SettingsPath: filepath.Join(dir, "settings.json"),
		CacheSize:    50,
	},
		app.WithLogger(logger),
		app.WithOpener(nopOpener{}),
		app.WithSupervisorOptions(
			downloader.WithRunner(holdRunner{}),
			downloader.WithDownloaderFinder(func() (string, error) { return "yt-dlp", nil }),
		),
	)
	s := a.GetSettings()
	s.DownloadFolder = filepath.Join(dir, "dl")
	if err := a.SaveSettings(s); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(New(a, logger, opts...).Routes())
	t.Cleanup(func() {
		ts.Close()
		a.Close()
	})
	return ts, a
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestSearchEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var page youtube.Page
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/search?q=lofi", "", &page); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(page.Items) == 0 || page.Notice == nil || page.Notice.Kind != youtube.NoticeNoAPIKey {
		t.Errorf("page = %+v", page)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/search?q=+", "", nil); code != http.StatusBadRequest {
		t.Errorf("empty query status = %d, want 400", code)
	}
}

func TestTrendingAndCategories(t *testing.T) {
	ts, _ := newTestServer(t)

	var page youtube.Page
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/trending?category=0", "", &page); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(page.Items) == 0 {
		t.Error("no trending items")
	}
	var cats []youtube.Category
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/categories", "", &cats); code != http.StatusOK || len(cats) == 0 {
		t.Errorf("categories status = %d, len = %d", code, len(cats))
	}
}

func TestCanDownloadEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	var page youtube.Page
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=rain", "", &page)

	var p app.Permission
	doJSON(t, http.MethodGet, ts.URL+"/api/videos/"+page.Items[0].ID+"/can-download", "", &p)
	if !p.Allowed {
		t.Errorf("permission = %+v", p)
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/videos/nope/can-download", "", &p)
	if p.Allowed || p.Reason != "Video not found" {
		t.Errorf("permission = %+v", p)
	}
}

func TestDownloadLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	var page youtube.Page
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=rain", "", &page)

	var rc downloader.Receipt
	body := `{"videoId":"` + page.Items[0].ID + `","format":"mp3"}`
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/downloads", body, &rc); code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d", code)
	}
	if rc.JobID == "" || rc.ActualFormat != "mp3" {
		t.Fatalf("receipt = %+v", rc)
	}

	var jobs []model.DownloadJob
	doJSON(t, http.MethodGet, ts.URL+"/api/downloads", "", &jobs)
	if len(jobs) != 1 || jobs[0].ID != rc.JobID {
		t.Fatalf("jobs = %+v", jobs)
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/downloads/"+rc.JobID, "", nil); code != http.StatusConflict {
		t.Errorf("dismiss running status = %d, want 409", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/downloads/"+rc.JobID+"/cancel", "", nil); code != http.StatusOK {
		t.Fatalf("cancel status = %d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/downloads/"+rc.JobID+"/cancel", "", nil); code != http.StatusNotFound {
		t.Errorf("second cancel status = %d, want 404", code)
	}

	var j model.DownloadJob
	doJSON(t, http.MethodGet, ts.URL+"/api/downloads/"+rc.JobID, "", &j)
	if j.Status != model.StatusCancelled {
		t.Errorf("status = %v", j.Status)
	}
	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/downloads/"+rc.JobID, "", nil); code != http.StatusNoContent {
		t.Errorf("dismiss status = %d, want 204", code)
	}
}

func TestClearFinished(t *testing.T) {
	ts, a := newTestServer(t)
	var page youtube.Page
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=rain", "", &page)

	var done, running downloader.Receipt
	doJSON(t, http.MethodPost, ts.URL+"/api/downloads", `{"videoId":"`+page.Items[0].ID+`"}`, &done)
	doJSON(t, http.MethodPost, ts.URL+"/api/downloads", `{"videoId":"`+page.Items[1].ID+`"}`, &running)
	if !a.Cancel(done.JobID) {
		t.Fatal("cancel failed")
	}

	var out map[string]int
	if code := doJSON(t, http.MethodDelete, ts.URL+"/api/downloads", "", &out); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if out["removed"] != 1 {
		t.Errorf("removed = %d, want 1", out["removed"])
	}
	var jobs []model.DownloadJob
	doJSON(t, http.MethodGet, ts.URL+"/api/downloads", "", &jobs)
	if len(jobs) != 1 || jobs[0].ID != running.JobID {
		t.Errorf("jobs = %+v", jobs)
	}
}

func TestEnqueueErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad format", `{"videoId":"abc123","format":"avi"}`, http.StatusBadRequest},
		{"no target", `{}`, http.StatusBadRequest},
		{"unknown video", `{"videoId":"zzzzzzzzzzz"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, ts.URL+"/api/downloads", tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestSettingsEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	var s model.DownloadSettings
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/settings", "", &s); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if code := doJSON(t, http.MethodPatch, ts.URL+"/api/settings", `{"audioBitrate":"320k"}`, &s); code != http.StatusOK {
		t.Fatalf("patch status = %d", code)
	}
	if s.AudioBitrate != "320k" || s.AudioFormat != "mp3" {
		t.Errorf("merged = %+v", s)
	}
	if code := doJSON(t, http.MethodPatch, ts.URL+"/api/settings", `{"defaultFormat":"avi"}`, nil); code != http.StatusBadRequest {
		t.Errorf("invalid patch status = %d, want 400", code)
	}
}

func TestEventsWebSocket(t *testing.T) {
	ts, _ := newTestServer(t)
	var page youtube.Page
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=rain", "", &page)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// The snapshot is sent after the handler subscribes to the bus.
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != MessageSnapshot || len(msg.Jobs) != 0 {
		t.Fatalf("first message = %+v", msg)
	}

	var rc downloader.Receipt
	body := `{"videoId":"` + page.Items[0].ID + `"}`
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/downloads", body, &rc); code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d", code)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != MessageProgress || msg.Event == nil {
		t.Fatalf("message = %+v", msg)
	}
	if msg.Event.JobID != rc.JobID || msg.Event.Status != model.StatusPreparing {
		t.Errorf("event = %+v, want preparing for %s", msg.Event, rc.JobID)
	}
}

// send issues a request with explicit headers and returns the response
// with its body read.
func send(t *testing.T, method, url, body string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestOriginPolicy(t *testing.T) {
	ts, _ := newTestServer(t)
	tests := []struct {
		name     string
		origin   string
		wantCode int
		wantACAO string
	}{
		{"no origin", "", http.StatusOK, ""},
		{"loopback dev server", "http://localhost:5173", http.StatusOK, "http://localhost:5173"},
		{"loopback ip", "http://127.0.0.1:8080", http.StatusOK, "http://127.0.0.1:8080"},
		{"foreign site", "https://evil.example", http.StatusForbidden, ""},
		{"lookalike host", "http://localhost.evil.example", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := map[string]string{}
			if tt.origin != "" {
				h["Origin"] = tt.origin
			}
			resp, body := send(t, http.MethodGet, ts.URL+"/api/settings", "", h)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.wantCode, body)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.wantACAO {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantACAO)
			}
		})
	}
}

func TestForeignPreflightGetsNoGrant(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, _ := send(t, http.MethodOptions, ts.URL+"/api/downloads", "", map[string]string{
		"Origin":                         "https://evil.example",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "Content-Type",
	})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
	}
}

func TestConfiguredOrigins(t *testing.T) {
	ts, _ := newTestServer(t, WithAllowedOrigins([]string{"https://*.example.com"}))
	tests := map[string]int{
		"https://app.example.com": http.StatusOK,
		"http://localhost:5173":   http.StatusForbidden,
		"https://example.org":     http.StatusForbidden,
	}
	for origin, want := range tests {
		resp, _ := send(t, http.MethodGet, ts.URL+"/api/health", "", map[string]string{"Origin": origin})
		if resp.StatusCode != want {
			t.Errorf("origin %s: status = %d, want %d", origin, resp.StatusCode, want)
		}
	}
}

func TestMutationsRequireJSON(t *testing.T) {
	ts, a := newTestServer(t)
	var page youtube.Page
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=rain", "", &page)
	before := a.GetSettings()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"enqueue", http.MethodPost, "/api/downloads", `{"videoId":"` + page.Items[0].ID + `"}`},
		{"merge settings", http.MethodPatch, "/api/settings", `{"downloadFolder":"/tmp/elsewhere"}`},
		{"save settings", http.MethodPut, "/api/settings", `{"downloadFolder":"/tmp/elsewhere","defaultFormat":"mp3"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := send(t, tt.method, ts.URL+tt.path, tt.body, map[string]string{"Content-Type": "text/plain"})
			if resp.StatusCode != http.StatusUnsupportedMediaType {
				t.Errorf("status = %d, want 415", resp.StatusCode)
			}
		})
	}
	if len(a.Jobs()) != 0 {
		t.Errorf("jobs = %+v, want none", a.Jobs())
	}
	if got := a.GetSettings(); got != before {
		t.Errorf("settings changed to %+v", got)
	}

	resp, _ := send(t, http.MethodPost, ts.URL+"/api/downloads", `{"videoId":"`+page.Items[0].ID+`"}`,
		map[string]string{"Content-Type": "application/json; charset=utf-8"})
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("json enqueue status = %d, want 202", resp.StatusCode)
	}
}

func TestSettingsMaskAPIKey(t *testing.T) {
	ts, a := newTestServer(t)
	s := a.GetSettings()
	s.YouTubeAPIKey = "AIzaSyABCDEF"
	if err := a.SaveSettings(s); err != nil {
		t.Fatal(err)
	}

	var got model.DownloadSettings
	doJSON(t, http.MethodGet, ts.URL+"/api/settings", "", &got)
	if got.YouTubeAPIKey != "********CDEF" {
		t.Fatalf("GET key = %q, want masked", got.YouTubeAPIKey)
	}

	// Echoing the masked value back leaves the stored key alone.
	got.AudioBitrate = "128k"
	body, _ := json.Marshal(got)
	var saved model.DownloadSettings
	if code := doJSON(t, http.MethodPut, ts.URL+"/api/settings", string(body), &saved); code != http.StatusOK {
		t.Fatalf("PUT status = %d", code)
	}
	if saved.YouTubeAPIKey != "********CDEF" {
		t.Errorf("PUT response key = %q", saved.YouTubeAPIKey)
	}
	if cur := a.GetSettings(); cur.YouTubeAPIKey != "AIzaSyABCDEF" || cur.AudioBitrate != "128k" {
		t.Errorf("after PUT = %+v", cur)
	}

	doJSON(t, http.MethodPatch, ts.URL+"/api/settings", `{"youtubeApiKey":"********CDEF","videoQuality":"1080p"}`, nil)
	if cur := a.GetSettings(); cur.YouTubeAPIKey != "AIzaSyABCDEF" || cur.VideoQuality != "1080p" {
		t.Errorf("after masked PATCH = %+v", cur)
	}

	doJSON(t, http.MethodPatch, ts.URL+"/api/settings", `{"youtubeApiKey":"NEWKEY123456"}`, nil)
	if cur := a.GetSettings(); cur.YouTubeAPIKey != "NEWKEY123456" {
		t.Errorf("after new key PATCH = %q", cur.YouTubeAPIKey)
	}
}

func TestEventsWebSocketRejectsForeignOrigin(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		conn.Close()
		t.Fatal("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %+v, want 403", resp)
	}

	conn, _, err = websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://localhost:5173"}})
	if err != nil {
		t.Fatalf("dial from loopback origin: %v", err)
	}
	conn.Close()
}
