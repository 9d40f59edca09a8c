// Package render turns a document snapshot into the byte stream that gets
// hashed and archived. The HTML renderer is a pure function of the
// snapshot; the PDF renderer feeds that HTML through headless Chrome.
package render

import (
	"context"

	"procure/api/internal/domain"
)

// Renderer produces the artifact bytes for a document snapshot.
type Renderer interface {
	Render(ctx context.Context, doc domain.Document) (data []byte, contentType string, err error)
}
