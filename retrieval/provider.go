package retrieval

import "context"

// SearchProvider defines the interface for web search backends.
type SearchProvider interface {
	// Search performs a web search and returns results in ranked order.
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
	// Name returns the provider name.
	Name() string
}

// SearchOptions configures a web search request.
type SearchOptions struct {
	MaxResults int    `json:"max_results"`     // Maximum number of results
	Depth      string `json:"depth,omitempty"` // Provider specific depth: "basic", "advanced"
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Snippet 是交给工作流的检索片段
type Snippet struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}
