// Package search finds records across projects, by engineering item,
// organizer, contractor or remark text.
package search

// Kind identifies which record table a hit came from.
type Kind string

const (
	KindProcurement Kind = "procurement"
	KindOperations  Kind = "operations"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Kind      Kind   `json:"kind"`
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text      string
	ProjectID string // empty = all projects
	Kind      Kind   // empty = both kinds
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
