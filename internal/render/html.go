package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"procure/api/internal/domain"
)

// HTMLRenderer renders a document snapshot to HTML. Given the same
// snapshot it always produces the same bytes, so the digest computed over
// its output fingerprints content, not formatting noise.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	tmpl := template.Must(template.New("document").Funcs(template.FuncMap{
		"inr":   FormatINR,
		"words": AmountInWords,
		"inc":   func(i int) int { return i + 1 },
		"qty":   formatQuantity,
		"when":  func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05 UTC") },
	}).Parse(documentTemplate))
	return &HTMLRenderer{tmpl: tmpl}
}

type templateData struct {
	ID              string
	KindLabel       string
	Number          string
	Title           string
	Date            string
	Status          domain.DocStatus
	LineItems       []domain.LineItem
	TotalPaise      int64
	CreatorName     string
	ApproverName    string
	Comments        string
	RejectionReason string
	History         []domain.ApprovalAction
}

func (r *HTMLRenderer) Render(_ context.Context, doc domain.Document) ([]byte, string, error) {
	approverName := ""
	if doc.ApproverID != nil {
		approverName = *doc.ApproverID
	}
	data := templateData{
		ID:              doc.ID,
		KindLabel:       doc.Kind.Label(),
		Number:          doc.Number,
		Title:           doc.Title,
		Date:            doc.CreatedAt.UTC().Format("02 Jan 2006"),
		Status:          doc.Status,
		LineItems:       doc.LineItems,
		TotalPaise:      doc.TotalPaise,
		CreatorName:     doc.CreatorID,
		ApproverName:    approverName,
		Comments:        doc.Comments,
		RejectionReason: doc.RejectionReason,
		History:         doc.History,
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", fmt.Errorf("render document %s: %w", doc.ID, err)
	}
	return buf.Bytes(), "text/html", nil
}

// formatQuantity trims trailing zeros so 2.0 renders as "2" and 2.5 as
// "2.5", independent of how the value was stored.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
