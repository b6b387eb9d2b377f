package models

// Backend call results are resolved into one of the concrete shapes below at
// the API boundary, instead of being shape-checked again at each consumption
// site.

// ChatReply is a plain text answer.
type ChatReply struct {
	Response string `json:"response"`
}

// TableReply is a database-query answer: a summary line plus result rows.
type TableReply struct {
	Summary string           `json:"summary"`
	Rows    []map[string]any `json:"rows"`
}

// BlobReply is a binary document produced by an export endpoint.
type BlobReply struct {
	Filename string
	Data     []byte
}

// Profile describes the authenticated user as reported by the backend.
type Profile struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// FAQ is one curated question for a knowledge-base document, with its
// aggregate answer rating.
type FAQ struct {
	Query        string  `json:"query"`
	AvgRating    float64 `json:"avg_rating"`
	TotalRatings int     `json:"total_ratings"`
}

// Insight is one curated analytic report: a titled result table with a short
// description.
type Insight struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
}
