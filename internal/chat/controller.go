package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/saathi/saathi-cli/internal/api"
	"github.com/saathi/saathi-cli/internal/models"
	"github.com/saathi/saathi-cli/internal/session"
	"github.com/saathi/saathi-cli/internal/shared"
	"github.com/saathi/saathi-cli/internal/stream"
)

// Controller drives one conversation topic: it owns that topic's session
// store exclusively and orchestrates turns against the backend. The normal
// topic streams its answer; the others resolve in a single request/response
// cycle.
type Controller struct {
	topic     models.Topic
	store     *session.Store
	artifacts *shared.Artifacts
	client    *api.Client
	logger    *zap.Logger

	// Topic addressing: the selected knowledge-base document or target URL.
	document string
	siteURL  string
}

func NewController(topic models.Topic, store *session.Store, artifacts *shared.Artifacts, client *api.Client, logger *zap.Logger) *Controller {
	return &Controller{
		topic:     topic,
		store:     store,
		artifacts: artifacts,
		client:    client,
		logger:    logger,
	}
}

func (c *Controller) Topic() models.Topic { return c.topic }

func (c *Controller) Store() *session.Store { return c.store }

func (c *Controller) Messages() []models.Message { return c.store.Messages() }

func (c *Controller) Prompts() []string { return c.artifacts.Prompts(c.topic) }

func (c *Controller) OutlineText() string { return c.artifacts.Outline(c.topic) }

func (c *Controller) SetDocument(path string) { c.document = path }

func (c *Controller) Document() string { return c.document }

func (c *Controller) SetWebsiteURL(target string) { c.siteURL = target }

// Send submits one user turn and blocks until the answer is finalized or
// failed. Network and stream failures become the fixed error message in place
// of the placeholder and are not returned; only an auth failure propagates,
// after the placeholder has been removed from the transcript.
func (c *Controller) Send(ctx context.Context, text string) (models.Message, error) {
	if c.topic == models.TopicNormal {
		return c.sendStreaming(ctx, text)
	}
	return c.sendSimple(ctx, text)
}

func (c *Controller) sendStreaming(ctx context.Context, text string) (models.Message, error) {
	turn := stream.Begin(c.store, text)

	body, err := c.client.Chat(ctx, text)
	if err != nil {
		return c.failTurn(turn, err)
	}
	defer body.Close()

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			turn.Accumulate(string(buf[:n]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			// Partial text is discarded in favor of the fixed error message;
			// no partial-success answer is shown.
			c.logger.Error("Stream read failed",
				zap.Error(err),
				zap.String("topic", string(c.topic)))
			turn.Fail()
			return c.lastMessage(), nil
		}
	}

	final := turn.Finalize()
	c.fetchPrompts(ctx, final.Text)
	return final, nil
}

func (c *Controller) sendSimple(ctx context.Context, text string) (models.Message, error) {
	turn := stream.Begin(c.store, text)

	var (
		answer models.Message
		err    error
	)

	switch c.topic {
	case models.TopicPDF:
		var reply models.ChatReply
		reply, err = c.client.AskPDF(ctx, text)
		answer = models.Message{Sender: models.SenderAssistant, Text: reply.Response}
	case models.TopicWebsite:
		var reply models.ChatReply
		reply, err = c.client.AskWebsite(ctx, c.siteURL, text)
		answer = models.Message{Sender: models.SenderAssistant, Text: reply.Response}
	case models.TopicDB:
		var reply models.TableReply
		reply, err = c.client.AskDB(ctx, text)
		summary := reply.Summary
		if err == nil && summary == "" {
			summary = "Query executed."
		}
		answer = models.Message{Sender: models.SenderAssistant, Text: summary, Table: reply.Rows}
	case models.TopicKB:
		var reply models.ChatReply
		reply, err = c.client.AskKB(ctx, c.document, text)
		answer = models.Message{
			Sender:             models.SenderAssistant,
			Text:               reply.Response,
			AssociatedQuestion: text,
		}
	default:
		turn.Abort()
		return models.Message{}, errors.New("unknown topic")
	}

	if err != nil {
		return c.failTurn(turn, err)
	}

	turn.Resolve(answer)
	if c.topic != models.TopicDB {
		c.fetchPrompts(ctx, answer.Text)
	}
	return c.lastMessage(), nil
}

// failTurn applies the error taxonomy: auth failures remove the placeholder
// and propagate, everything else becomes the fixed inline error message.
func (c *Controller) failTurn(turn *stream.Turn, err error) (models.Message, error) {
	if errors.Is(err, api.ErrUnauthorized) {
		turn.Abort()
		return models.Message{}, err
	}

	c.logger.Error("Chat request failed",
		zap.Error(err),
		zap.String("topic", string(c.topic)))
	turn.Fail()
	return c.lastMessage(), nil
}

func (c *Controller) lastMessage() models.Message {
	msgs := c.store.Messages()
	if len(msgs) == 0 {
		return models.Message{}
	}
	return msgs[len(msgs)-1]
}

// fetchPrompts derives smart follow-up prompts from a finalized answer. Best
// effort: any failure degrades to an empty suggestion list and never touches
// the finalized message.
func (c *Controller) fetchPrompts(ctx context.Context, text string) {
	prompts, err := c.client.GeneratePrompts(ctx, text)
	if err != nil {
		c.logger.Warn("Failed to generate prompts",
			zap.Error(err),
			zap.String("topic", string(c.topic)))
		c.artifacts.SetPrompts(c.topic, nil)
		return
	}
	c.artifacts.SetPrompts(c.topic, prompts)
}

// Rate attaches a rating locally first, then reports it to the backend as a
// best-effort call. Knowledge-base topic only; other topics have nothing to
// rate and the local update simply matches no messages.
func (c *Controller) Rate(ctx context.Context, question string, rating int) int {
	updated := c.store.Rate(question, rating)
	if updated == 0 {
		return 0
	}
	if err := c.client.RateResponse(ctx, c.document, question, rating); err != nil {
		c.logger.Warn("Failed to submit rating",
			zap.Error(err),
			zap.String("question", question))
	}
	return updated
}

// Outline generates an outline for the given answer text and records it in
// the shared artifact store. Failures are swallowed.
func (c *Controller) Outline(ctx context.Context, text string) string {
	outline, err := c.client.GenerateOutline(ctx, text)
	if err != nil {
		c.logger.Warn("Failed to generate outline",
			zap.Error(err),
			zap.String("topic", string(c.topic)))
		return ""
	}
	c.artifacts.SetOutline(c.topic, outline)
	return outline
}

// ExportKind selects the rendition of an outline export.
type ExportKind string

const (
	ExportPPT   ExportKind = "ppt"
	ExportPDF   ExportKind = "pdf"
	ExportExcel ExportKind = "excel"
)

// ExportOutline downloads the current outline in the requested format and
// writes it under dir with the export's fixed filename.
func (c *Controller) ExportOutline(ctx context.Context, kind ExportKind, dir string) (string, error) {
	var (
		blob models.BlobReply
		err  error
	)

	switch kind {
	case ExportPPT:
		blob, err = c.client.ExportOutlinePPT(ctx, c.artifacts.Outline(c.topic))
	case ExportPDF:
		blob, err = c.client.ExportOutlinePDF(ctx, c.artifacts.Outline(c.topic))
	case ExportExcel:
		blob, err = c.client.ExportExcel(ctx)
	default:
		return "", errors.New("unknown export kind")
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, blob.Filename)
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Upload sends a PDF to the backend for the ad-hoc PDF topic.
func (c *Controller) Upload(ctx context.Context, r io.Reader, path string) error {
	return c.client.UploadPDF(ctx, filepath.Base(path), r)
}

// Stop sends the advisory cancellation signal. The in-flight read, if any, is
// left to drain; the backend is expected to stop producing chunks.
func (c *Controller) Stop(ctx context.Context) {
	if err := c.client.Stop(ctx); err != nil {
		c.logger.Warn("Failed to send stop signal", zap.Error(err))
	}
}

// Clear empties the conversation and resets the topic's smart prompts, the
// reaction to the cross-cutting clear signal.
func (c *Controller) Clear() {
	c.store.Clear()
	c.artifacts.SetPrompts(c.topic, nil)
}
