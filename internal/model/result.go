package model

// License is the coarse rights bucket shown next to a result.
type License string

const (
	LicenseCC       License = "cc"
	LicenseMine     License = "mine"
	LicenseStandard License = "standard"
)

// SearchResult is one normalized video entry from a search or trending call.
type SearchResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Duration    string  `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	License     License `json:"license"`
	PublishedAt string  `json:"publishedAt"`

	// Sample marks placeholder entries produced without real API data.
	Sample bool `json:"sample,omitempty"`
}

// WatchURL returns the canonical YouTube watch URL for the result.
func (r SearchResult) WatchURL() string {
	return WatchURL(r.ID)
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
