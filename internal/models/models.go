package models

import "time"

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Topic is one independent conversation surface.
type Topic string

const (
	TopicNormal  Topic = "normal"
	TopicPDF     Topic = "pdf"
	TopicWebsite Topic = "website"
	TopicDB      Topic = "db"
	TopicKB      Topic = "kb"
)

// Topics lists every conversation surface in display order.
var Topics = []Topic{TopicNormal, TopicPDF, TopicWebsite, TopicDB, TopicKB}

// TimeFormat is the display format stamped on finalized messages.
const TimeFormat = "15:04"

// Message represents one turn entry in a conversation.
//
// Text is mutable while Streaming is set and immutable once the message is
// finalized. Timestamp stays empty until finalization. At most one message in
// a conversation may have Streaming set at a time.
type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
	Streaming bool   `json:"streaming,omitempty"`

	// Rating is a 1-5 score attached post-hoc to an assistant message in the
	// knowledge-base topic. Zero means unrated.
	Rating int `json:"rating,omitempty"`

	// AssociatedQuestion carries the user question that produced an assistant
	// answer, so a rating can be routed to the right turn.
	AssociatedQuestion string `json:"question,omitempty"`

	// Table holds the row payload attached to a database-topic answer.
	Table []map[string]any `json:"table,omitempty"`
}

// NewUserMessage builds a finalized user message stamped with the current time.
func NewUserMessage(text string) Message {
	return Message{
		Sender:    SenderUser,
		Text:      text,
		Timestamp: time.Now().Format(TimeFormat),
	}
}

// NewPlaceholder builds the in-progress assistant message shown while a reply
// is being produced.
func NewPlaceholder() Message {
	return Message{
		Sender:    SenderAssistant,
		Text:      ThinkingText,
		Streaming: true,
	}
}

const (
	// ThinkingText is displayed in the placeholder until content arrives.
	ThinkingText = "Thinking..."

	// EmptyReplyText replaces a reply that finished with no content.
	EmptyReplyText = "No valid reply received."

	// ServerErrorText replaces the placeholder when a request or stream fails.
	ServerErrorText = "Error contacting server."
)
