// Package blob abstracts the artifact store. Rendered documents are
// written once under a unique key and never rewritten; the retrievable
// URL and the content digest are persisted together on the document.
package blob

import "context"

// Store is the persistence boundary for rendered artifacts.
type Store interface {
	// Upload writes data under key and returns a URL it can be fetched
	// back from.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Fetch retrieves the bytes currently stored at a URL previously
	// returned by Upload.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Delete removes an object by key. Stale artifacts of regenerated
	// documents are deliberately left in place; Delete exists for
	// administrative cleanup.
	Delete(ctx context.Context, key string) error
}
