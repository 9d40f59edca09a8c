// Package search maintains a Meilisearch index of procurement documents.
// Indexing is best-effort: a down search backend never affects the
// approval workflow.
package search

import (
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"procure/api/internal/domain"
)

const idxDocuments = "procure_documents"

// DocumentRecord is the indexed projection of a document.
type DocumentRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Number     string `json:"number"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	CreatorID  string `json:"creatorId"`
	TotalPaise int64  `json:"totalPaise"`
}

// Meili wraps the Meilisearch client with health tracking.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the document index.
// The service keeps running without search if the backend is unreachable.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxDocuments,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.Error(err))
	}

	index := m.client.Index(idxDocuments)
	filterable := []interface{}{"kind", "status", "creatorId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"title", "number"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// IndexDocument upserts a document into the index. Failures are logged
// and swallowed.
func (m *Meili) IndexDocument(doc domain.Document) {
	if !m.healthy.Load() {
		return
	}
	record := DocumentRecord{
		ID:         doc.ID,
		Kind:       string(doc.Kind),
		Number:     doc.Number,
		Title:      doc.Title,
		Status:     string(doc.Status),
		CreatorID:  doc.CreatorID,
		TotalPaise: doc.TotalPaise,
	}
	if _, err := m.client.Index(idxDocuments).AddDocuments([]DocumentRecord{record}, nil); err != nil {
		m.healthy.Store(false)
		m.logger.Warn("index document", zap.String("documentId", doc.ID), zap.Error(err))
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}
