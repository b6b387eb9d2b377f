package models

// Snapshot is the persisted record of one per-user store, rewritten on every
// mutation and restored when the store is constructed. Conversation sessions
// fill Messages and PendingInput; the curated-insights store fills Insights.
type Snapshot struct {
	Messages     []Message `json:"messages,omitempty"`
	PendingInput string    `json:"pending_input,omitempty"`
	Insights     []Insight `json:"insights,omitempty"`
}
