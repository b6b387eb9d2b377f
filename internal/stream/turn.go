package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/session"
)

// State tracks where a turn is in its lifecycle.
type State int

const (
	Idle State = iota
	AwaitingFirstChunk
	Streaming
	Finalized
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFirstChunk:
		return "awaiting_first_chunk"
	case Streaming:
		return "streaming"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Turn drives one question/answer exchange: it appends the user message and
// the streaming placeholder, folds incoming chunks into the placeholder, and
// finalizes or fails it exactly once. Terminal transitions are idempotent, so
// a duplicate completion event leaves the session untouched.
type Turn struct {
	ID uuid.UUID

	mu       sync.Mutex
	store    *session.Store
	state    State
	question string
	acc      strings.Builder
}

// Begin opens a turn: the user message is appended first, then the
// placeholder, so within a turn ordering is User, placeholder, updates,
// finalization.
func Begin(store *session.Store, question string) *Turn {
	t := &Turn{
		ID:       uuid.New(),
		store:    store,
		state:    AwaitingFirstChunk,
		question: question,
	}

	store.Append(models.NewUserMessage(question))
	store.Append(models.NewPlaceholder())
	return t
}

func (t *Turn) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Question returns the user text that opened this turn.
func (t *Turn) Question() string { return t.question }

// Accumulate concatenates a chunk onto the turn's accumulator, with no
// inserted separators, and pushes the running text into the placeholder.
// Chunks arriving after a terminal transition are dropped.
func (t *Turn) Accumulate(chunk string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != AwaitingFirstChunk && t.state != Streaming {
		return
	}
	if chunk == "" {
		return
	}

	t.state = Streaming
	t.acc.WriteString(chunk)

	text := t.acc.String()
	t.replaceStreamingLocked(func(m models.Message) models.Message {
		m.Text = text
		return m
	})
}

// Finalize closes the turn with the accumulated text, trimmed, or the empty
// reply fallback when nothing arrived. Calling it again is a no-op.
func (t *Turn) Finalize() models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Finalized || t.state == Failed {
		return models.Message{}
	}

	text := strings.TrimSpace(t.acc.String())
	if text == "" {
		text = models.EmptyReplyText
	}

	final := models.Message{
		Sender:             models.SenderAssistant,
		Text:               text,
		Timestamp:          time.Now().Format(models.TimeFormat),
		AssociatedQuestion: t.question,
	}
	t.finishLocked(final)
	return final
}

// Resolve closes the turn with a complete answer, the single request/response
// path used by the non-streaming topics. The placeholder is replaced
// wholesale.
func (t *Turn) Resolve(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Finalized || t.state == Failed {
		return
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(models.TimeFormat)
	}
	msg.Streaming = false
	t.finishLocked(msg)
}

// Fail replaces the placeholder with the fixed error text. Text accumulated
// before the failure is discarded rather than shown as a partial answer.
func (t *Turn) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Finalized || t.state == Failed {
		return
	}

	errMsg := models.Message{
		Sender:             models.SenderAssistant,
		Text:               models.ServerErrorText,
		Timestamp:          time.Now().Format(models.TimeFormat),
		AssociatedQuestion: t.question,
	}
	t.state = Failed
	t.replaceStreamingLocked(func(models.Message) models.Message {
		return errMsg
	})
}

// Abort removes the placeholder without leaving any answer behind. Used when
// a turn must vanish from the transcript, e.g. an auth failure that is
// surfaced as navigation rather than as chat content.
func (t *Turn) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Finalized || t.state == Failed {
		return
	}
	t.state = Failed

	msgs := t.store.Messages()
	kept := msgs[:0]
	for _, m := range msgs {
		if !m.Streaming {
			kept = append(kept, m)
		}
	}
	t.store.ReplaceAll(kept)
}

func (t *Turn) finishLocked(final models.Message) {
	t.state = Finalized
	t.replaceStreamingLocked(func(models.Message) models.Message {
		return final
	})
}

// replaceStreamingLocked swaps the one message currently flagged as streaming,
// leaving every other entry untouched.
func (t *Turn) replaceStreamingLocked(fn func(models.Message) models.Message) {
	msgs := t.store.Messages()
	for i, m := range msgs {
		if m.Streaming {
			msgs[i] = fn(m)
		}
	}
	t.store.ReplaceAll(msgs)
}
