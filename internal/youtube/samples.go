package youtube

import "github.com/ronled86/ClipPilot/internal/model"

// Placeholder IDs are never 11 characters long, so none of them can be
// mistaken for a real video ID. Sample is set on every placeholder too.
const QuotaPlaceholderID = "quota-exceeded"

func sample(id, title, channel, duration string, lic model.License, published string) model.SearchResult {
	return model.SearchResult{
		ID:          id,
		Title:       title,
		Channel:     channel,
		Duration:    duration,
		License:     lic,
		PublishedAt: published,
		Sample:      true,
	}
}

// SampleSearch is returned when no API key is configured.
func SampleSearch(query string) []model.SearchResult {
	return []model.SearchResult{
		sample("abc123", "Sample for: "+query, "ClipPilot", "12:34", model.LicenseCC, "2 days ago"),
		sample("def456", "Demo track: "+query, "ClipPilot", "5:20", model.LicenseStandard, "1 week ago"),
		sample("ghi789", "My upload: "+query, "Your Channel", "8:15", model.LicenseMine, "3 days ago"),
	}
}

// ErrorSearch is returned when the API call fails for a non-quota reason.
func ErrorSearch(query string) []model.SearchResult {
	return []model.SearchResult{
		sample("error123", "API Error - Sample for: "+query, "ClipPilot", "12:34", model.LicenseCC, "1 day ago"),
		sample("error456", "Check API key - Demo: "+query, "ClipPilot", "5:20", model.LicenseStandard, "5 days ago"),
	}
}

// SampleTrending is returned by Trending when no API key is configured.
func SampleTrending() []model.SearchResult {
	return []model.SearchResult{
		sample("trending1", "🔥 Trending Music Mix 2025", "Music Channel", "45:32", model.LicenseStandard, "6 hours ago"),
		sample("trending2", "🎵 Top Hits This Week", "Popular Music", "32:15", model.LicenseStandard, "12 hours ago"),
		sample("trending3", "📱 Tech Review: Latest Gadgets", "Tech Today", "12:45", model.LicenseStandard, "1 day ago"),
		sample("trending4", "🎬 Movie Trailers Compilation", "Cinema Hub", "25:30", model.LicenseStandard, "2 days ago"),
		sample("trending5", "🎸 Acoustic Guitar Sessions", "Music Live", "38:20", model.LicenseCC, "3 days ago"),
		sample("trending6", "🏃 Fitness Workout Routine", "Health & Fitness", "22:10", model.LicenseStandard, "4 days ago"),
		sample("trending7", "🍳 Quick Cooking Recipes", "Food Network", "15:45", model.LicenseStandard, "5 days ago"),
		sample("trending8", "🎯 Gaming Highlights 2025", "Pro Gaming", "28:55", model.LicenseStandard, "1 week ago"),
		sample("trending9", "🌍 Travel Destinations Guide", "Adventure World", "35:40", model.LicenseStandard, "1 week ago"),
		sample("trending10", "📚 Educational Content Hub", "Learn Today", "42:15", model.LicenseCC, "2 weeks ago"),
	}
}

// ErrorTrending is returned when the trending call fails.
func ErrorTrending() []model.SearchResult {
	return []model.SearchResult{
		sample("error1", "🔥 Popular Content (Demo)", "ClipPilot", "15:30", model.LicenseCC, "1 hour ago"),
		sample("error2", "🎵 Trending Music (Demo)", "ClipPilot", "22:45", model.LicenseStandard, "3 hours ago"),
	}
}

// QuotaPlaceholder is the single entry shown once the daily quota is spent.
func QuotaPlaceholder() model.SearchResult {
	return sample(QuotaPlaceholderID, "YouTube API quota exceeded, results resume after the daily reset",
		"ClipPilot", "0:00", model.LicenseStandard, "")
}

// Category is one trending filter.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AllCategories is the "no filter" category ID.
const AllCategories = "0"

// Categories lists the trending filters offered to the user.
func Categories() []Category {
	return []Category{
		{AllCategories, "All"},
		{"10", "Music"},
		{"24", "Entertainment"},
		{"23", "Comedy"},
		{"27", "Education"},
		{"28", "Science & Technology"},
		{"26", "Howto & Style"},
		{"25", "News & Politics"},
		{"22", "People & Blogs"},
		{"1", "Film & Animation"},
		{"20", "Gaming"},
		{"17", "Sports"},
		{"19", "Travel & Events"},
		{"15", "Pets & Animals"},
		{"2", "Autos & Vehicles"},
	}
}
