package shared

import (
	"sync"

	"github.com/saathi/saathi-cli/internal/models"
)

// Artifacts holds derived, disposable cross-topic state: smart follow-up
// prompts and generated outlines, keyed by topic. It is shared-by-read across
// all topic controllers but written only by the controller that produced the
// artifact. Missing keys read as empty, never as an error. Nothing here is
// persisted.
type Artifacts struct {
	mu       sync.RWMutex
	prompts  map[models.Topic][]string
	outlines map[models.Topic]string
}

func NewArtifacts() *Artifacts {
	return &Artifacts{
		prompts:  make(map[models.Topic][]string),
		outlines: make(map[models.Topic]string),
	}
}

func (a *Artifacts) SetPrompts(topic models.Topic, prompts []string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.prompts[topic] = append([]string(nil), prompts...)
}

func (a *Artifacts) Prompts(topic models.Topic) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]string(nil), a.prompts[topic]...)
}

func (a *Artifacts) SetOutline(topic models.Topic, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outlines[topic] = text
}

func (a *Artifacts) Outline(topic models.Topic) string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.outlines[topic]
}
