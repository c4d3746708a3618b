package youtube

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	yt "google.golang.org/api/youtube/v3"

	"github.com/ronled86/ClipPilot/internal/model"
)

// ErrEmptyQuery is the only error Search returns.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// NoticeKind classifies why a page holds placeholder data.
type NoticeKind string

const (
	NoticeNoAPIKey      NoticeKind = "no_api_key"
	NoticeQuotaExceeded NoticeKind = "quota_exceeded"
	NoticeAPIError      NoticeKind = "api_error"
)

// Notice explains a degraded page. Nil on a Page means real data.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	Err     error      `json:"-"`
}

// Page is one batch of results.
type Page struct {
	Items         []model.SearchResult `json:"items"`
	NextPageToken string               `json:"nextPageToken,omitempty"`
	Notice        *Notice              `json:"notice,omitempty"`
}

// Client wraps the Data API. API failures never escape as errors: they are
// classified into a Notice and paired with placeholder results.
type Client struct {
	newAPI APIFactory
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time

	region       string
	category     string
	searchSize   int64
	trendingSize int64
}

// Option configures a Client.
type Option func(*Client)

func WithAPIFactory(f APIFactory) Option { return func(c *Client) { c.newAPI = f } }
func WithCache(cache *Cache) Option      { return func(c *Client) { c.cache = cache } }
func WithLogger(l *slog.Logger) Option   { return func(c *Client) { c.logger = l } }
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRegion sets the trending region code.
func WithRegion(code string) Option { return func(c *Client) { c.region = code } }

// WithDefaultCategory sets the category used when Trending gets none.
func WithDefaultCategory(id string) Option { return func(c *Client) { c.category = id } }

// WithPageSizes sets maxResults for search and trending calls.
func WithPageSizes(search, trending int64) Option {
	return func(c *Client) {
		if search > 0 {
			c.searchSize = search
		}
		if trending > 0 {
			c.trendingSize = trending
		}
	}
}

// New returns a client. Without WithAPIFactory the official service is used.
func New(opts ...Option) *Client {
	c := &Client{
		logger:       slog.Default(),
		now:          time.Now,
		region:       "US",
		category:     "10",
		searchSize:   12,
		trendingSize: 20,
	}
	for _, o := range opts {
		o(c)
	}
	if c.newAPI == nil {
		c.newAPI = NewServiceFactory()
	}
	if c.cache == nil {
		c.cache = NewCache(500)
	}
	return c
}

// Cache exposes the result cache shared with the download path.
func (c *Client) Cache() *Cache { return c.cache }

// Search returns the first page for query.
func (c *Client) Search(ctx context.Context, query, apiKey string) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, ErrEmptyQuery
	}
	if apiKey == "" {
		c.logger.Warn("youtube api key not configured, using sample results")
		return c.placeholder(SampleSearch(query), &Notice{Kind: NoticeNoAPIKey, Message: "YouTube API key not configured"}), nil
	}
	page, err := c.searchPage(ctx, query, "", apiKey)
	if err != nil {
		return c.degraded("search", err, ErrorSearch(query)), nil
	}
	return page, nil
}

// SearchMore returns the page after pageToken. Without a key there is
// nothing more to load.
func (c *Client) SearchMore(ctx context.Context, query, pageToken, apiKey string) (Page, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Page{}, ErrEmptyQuery
	}
	if apiKey == "" || pageToken == "" {
		return Page{Items: []model.SearchResult{}}, nil
	}
	page, err := c.searchPage(ctx, query, pageToken, apiKey)
	if err != nil {
		return c.degraded("search-more", err, nil), nil
	}
	return page, nil
}

func (c *Client) searchPage(ctx context.Context, query, pageToken, apiKey string) (Page, error) {
	api, err := c.newAPI(ctx, apiKey)
	if err != nil {
		return Page{}, err
	}
	ids, next, err := api.SearchIDs(ctx, query, pageToken, c.searchSize)
	if err != nil {
		return Page{}, err
	}
	if len(ids) == 0 {
		return Page{Items: []model.SearchResult{}}, nil
	}
	videos, err := api.Videos(ctx, ids)
	if err != nil {
		return Page{}, err
	}
	items := c.convert(videos)
	c.cache.Add(items...)
	return Page{Items: items, NextPageToken: next}, nil
}

// Trending returns the most popular videos for categoryID. An empty
// categoryID uses the configured default; AllCategories disables the filter.
func (c *Client) Trending(ctx context.Context, apiKey, categoryID string) (Page, error) {
	if apiKey == "" {
		c.logger.Warn("youtube api key not configured, using sample trending")
		return c.placeholder(SampleTrending(), &Notice{Kind: NoticeNoAPIKey, Message: "YouTube API key not configured"}), nil
	}
	page, err := c.trendingPage(ctx, apiKey, categoryID, "")
	if err != nil {
		return c.degraded("trending", err, ErrorTrending()), nil
	}
	return page, nil
}

// MoreTrending returns the trending page after pageToken.
func (c *Client) MoreTrending(ctx context.Context, apiKey, categoryID, pageToken string) (Page, error) {
	if apiKey == "" || pageToken == "" {
		return Page{Items: []model.SearchResult{}}, nil
	}
	page, err := c.trendingPage(ctx, apiKey, categoryID, pageToken)
	if err != nil {
		return c.degraded("trending-more", err, nil), nil
	}
	return page, nil
}

func (c *Client) trendingPage(ctx context.Context, apiKey, categoryID, pageToken string) (Page, error) {
	api, err := c.newAPI(ctx, apiKey)
	if err != nil {
		return Page{}, err
	}
	category := c.resolveCategory(categoryID)
	videos, next, err := api.MostPopular(ctx, c.region, category, pageToken, c.trendingSize)
	if err != nil && category != "" && IsNotFound(err) {
		// Some regions have no chart for a category; retry unfiltered once.
		c.logger.Info("trending category not found, retrying without filter",
			slog.String("category", category), slog.String("region", c.region))
		videos, next, err = api.MostPopular(ctx, c.region, "", pageToken, c.trendingSize)
	}
	if err != nil {
		return Page{}, err
	}
	items := c.convert(videos)
	c.cache.Add(items...)
	return Page{Items: items, NextPageToken: next}, nil
}

func (c *Client) resolveCategory(id string) string {
	if id == "" {
		id = c.category
	}
	if id == AllCategories {
		return ""
	}
	return id
}

// Lookup returns a result by video ID: the cache first, then videos.list
// when a key is available.
func (c *Client) Lookup(ctx context.Context, id, apiKey string) (model.SearchResult, bool) {
	if r, ok := c.cache.Get(id); ok {
		return r, true
	}
	if apiKey == "" {
		return model.SearchResult{}, false
	}
	api, err := c.newAPI(ctx, apiKey)
	if err != nil {
		c.logger.Warn("youtube lookup", slog.String("id", id), slog.String("err", err.Error()))
		return model.SearchResult{}, false
	}
	videos, err := api.Videos(ctx, []string{id})
	if err != nil {
		c.logger.Warn("youtube lookup", slog.String("id", id), slog.String("err", err.Error()))
		return model.SearchResult{}, false
	}
	items := c.convert(videos)
	c.cache.Add(items...)
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.SearchResult{}, false
}

func (c *Client) placeholder(items []model.SearchResult, n *Notice) Page {
	c.cache.Add(items...)
	return Page{Items: items, Notice: n}
}

// degraded classifies err and returns the matching placeholder page.
// fallback may be nil for pagination calls, which then return no items.
func (c *Client) degraded(op string, err error, fallback []model.SearchResult) Page {
	if IsQuotaExceeded(err) {
		c.logger.Warn("youtube quota exceeded", slog.String("op", op))
		return c.placeholder([]model.SearchResult{QuotaPlaceholder()},
			&Notice{Kind: NoticeQuotaExceeded, Message: "YouTube API quota exceeded", Err: err})
	}
	c.logger.Error("youtube api call failed", slog.String("op", op), slog.String("err", err.Error()))
	if fallback == nil {
		fallback = []model.SearchResult{}
	}
	return c.placeholder(fallback, &Notice{Kind: NoticeAPIError, Message: err.Error(), Err: err})
}

func (c *Client) convert(videos []*yt.Video) []model.SearchResult {
	now := c.now()
	out := make([]model.SearchResult, 0, len(videos))
	for _, v := range videos {
		if v == nil || v.Id == "" {
			continue
		}
		r := model.SearchResult{ID: v.Id, Duration: "0:00", License: model.LicenseStandard}
		if s := v.Snippet; s != nil {
			r.Title = s.Title
			r.Channel = s.ChannelTitle
			r.PublishedAt = FormatPublishedDate(s.PublishedAt, now)
			if s.Thumbnails != nil && s.Thumbnails.Medium != nil {
				r.Thumbnail = s.Thumbnails.Medium.Url
			}
		}
		if cd := v.ContentDetails; cd != nil {
			r.Duration = FormatDuration(cd.Duration)
		}
		r.License = DetermineLicense(r.Title, r.Channel)
		out = append(out, r)
	}
	return out
}
