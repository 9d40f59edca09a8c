// Package pipeline orchestrates the render → hash → upload path that backs
// every approved document with a content-addressed artifact, and the
// fetch → hash → compare path that later checks the artifact was not
// replaced.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"

	"procure/api/internal/blob"
	"procure/api/internal/domain"
	"procure/api/internal/render"
)

// Digest returns the hex SHA-256 fingerprint of a byte stream.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Pipeline produces and archives document artifacts.
type Pipeline struct {
	renderer render.Renderer
	store    blob.Store
	logger   *zap.Logger
	now      func() time.Time
}

func New(renderer render.Renderer, store blob.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		renderer: renderer,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate renders the document's current snapshot, hashes the exact bytes
// produced and uploads them under a fresh key. The caller persists the
// returned URL and digest together. Regenerating an unchanged snapshot is
// safe: it writes a new blob and leaves the old one in place.
func (p *Pipeline) Generate(ctx context.Context, doc domain.Document) (string, string, error) {
	data, contentType, err := p.renderer.Render(ctx, doc)
	if err != nil {
		return "", "", fmt.Errorf("render %s: %w", doc.ID, err)
	}

	digest := Digest(data)
	key := p.objectKey(doc, contentType)

	var url string
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("artifact upload retry",
				zap.String("documentId", doc.ID),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	err = r.Do(func() error {
		var uploadErr error
		url, uploadErr = p.store.Upload(ctx, key, data, contentType)
		return uploadErr
	})
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", key, err)
	}

	return url, digest, nil
}

// objectKey namespaces artifacts by kind and business number; the
// timestamp keeps regenerated artifacts from colliding.
func (p *Pipeline) objectKey(doc domain.Document, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "application/pdf":
		ext = ".pdf"
	case "text/html":
		ext = ".html"
	}
	kind := strings.ToLower(string(doc.Kind))
	return fmt.Sprintf("%s/%s/%d%s", kind, doc.Number, p.now().UnixNano(), ext)
}
