package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/kbnote/internal/core/domain"
	"github.com/custodia-labs/kbnote/internal/core/ports/driven"
)

// NormaliserRegistry selects the body normaliser for an item by content
// type. Items with no registered normaliser keep their content, trimmed.
type NormaliserRegistry struct {
	mu          sync.RWMutex
	normalisers map[domain.ContentType]driven.BodyNormaliser
}

// NewNormaliserRegistry creates a registry holding normalisers.
// A later normaliser replaces an earlier one for the same content type.
func NewNormaliserRegistry(normalisers ...driven.BodyNormaliser) *NormaliserRegistry {
	r := &NormaliserRegistry{normalisers: make(map[domain.ContentType]driven.BodyNormaliser)}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser for each content type it handles.
func (r *NormaliserRegistry) Register(n driven.BodyNormaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ct := range n.ContentTypes() {
		r.normalisers[ct] = n
	}
}

// Normalise returns the body text of an item.
func (r *NormaliserRegistry) Normalise(item domain.RawItem) (string, error) {
	r.mu.RLock()
	n, ok := r.normalisers[item.ContentType]
	r.mu.RUnlock()

	if !ok {
		return strings.TrimSpace(item.Content), nil
	}
	body, err := n.Normalise(item)
	if err != nil {
		return "", fmt.Errorf("normalise %s: %w", item.ContentType, err)
	}
	return body, nil
}
