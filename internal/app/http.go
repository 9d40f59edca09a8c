package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"procure/api/internal/domain"
	"procure/api/internal/token"
)

type HTTPServer struct {
	service        *Service
	logger         *zap.Logger
	metricsHandler http.Handler
}

func NewHTTPServer(service *Service, logger *zap.Logger, metricsHandler http.Handler) *HTTPServer {
	return &HTTPServer{service: service, logger: logger, metricsHandler: metricsHandler}
}

type contextKey string

const sessionKey contextKey = "session"

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Post("/api/auth/signin", s.handleSignIn)

	// Email-initiated actions carry their authority in the token and are
	// deliberately unauthenticated.
	r.Get("/api/approvals/approve", s.handleEmailAction(token.ActionApprove))
	r.Get("/api/approvals/reject", s.handleEmailAction(token.ActionReject))

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post("/api/documents", s.handleCreateDraft)
		r.Get("/api/documents/{id}", s.handleGetDocument)
		r.Post("/api/documents/{id}/submit", s.handleSubmit)
		r.Post("/api/documents/{id}/approve", s.handleApprove)
		r.Post("/api/documents/{id}/reject", s.handleReject)
		r.Get("/api/documents/{id}/verify", s.handleVerifyArtifact)
	})

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ok":     false,
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ready"})
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body")
		return
	}

	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     session.Token,
		"userId":    session.UserID,
		"userName":  session.UserName,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt,
	})
}

// requireSession authenticates in-app actors and stores their claims on
// the request context.
func (s *HTTPServer) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing bearer token")
			return
		}
		claims, err := s.service.SessionFromToken(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) token.SessionClaims {
	claims, _ := r.Context().Value(sessionKey).(token.SessionClaims)
	return claims
}

func (s *HTTPServer) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	actor := sessionFrom(r)
	var body struct {
		Kind       string            `json:"kind"`
		Number     string            `json:"number"`
		Title      string            `json:"title"`
		ApproverID string            `json:"approverId"`
		LineItems  []domain.LineItem `json:"lineItems"`
		Comments   string            `json:"comments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed request body")
		return
	}

	doc, err := s.service.CreateDraft(r.Context(), DraftInput{
		Kind:       domain.DocKind(body.Kind),
		Number:     body.Number,
		Title:      body.Title,
		ApproverID: body.ApproverID,
		LineItems:  body.LineItems,
		Comments:   body.Comments,
	}, actor.Sub)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentResponse(doc))
}

func (s *HTTPServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	actor := sessionFrom(r)
	doc, err := s.service.Submit(r.Context(), chi.URLParam(r, "id"), actor.Sub)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	actor := sessionFrom(r)
	var body struct {
		Comments string `json:"comments"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	doc, err := s.service.Approve(r.Context(), chi.URLParam(r, "id"), actor.Sub, body.Comments)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	actor := sessionFrom(r)
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	doc, err := s.service.Reject(r.Context(), chi.URLParam(r, "id"), actor.Sub, body.Reason)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse(doc))
}

func (s *HTTPServer) handleEmailAction(action token.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := r.URL.Query().Get("token")
		comment := r.URL.Query().Get("comment")

		doc, err := s.service.HandleEmailAction(r.Context(), tok, action, comment)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, documentResponse(doc))
	}
}

func (s *HTTPServer) handleVerifyArtifact(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.VerifyArtifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if result.Err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"isValid": false,
			"error":   result.Err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isValid":       result.IsValid,
		"currentDigest": result.CurrentDigest,
	})
}

type documentJSON struct {
	ID              string                  `json:"id"`
	Kind            domain.DocKind          `json:"kind"`
	Number          string                  `json:"number"`
	Title           string                  `json:"title"`
	Status          domain.DocStatus        `json:"status"`
	CreatorID       string                  `json:"creatorId"`
	ApproverID      *string                 `json:"approverId,omitempty"`
	History         []domain.ApprovalAction `json:"history"`
	Comments        string                  `json:"comments,omitempty"`
	RejectionReason string                  `json:"rejectionReason,omitempty"`
	DocumentURL     string                  `json:"documentUrl,omitempty"`
	DocumentHash    string                  `json:"documentHash,omitempty"`
}

func documentResponse(doc domain.Document) documentJSON {
	return documentJSON{
		ID:              doc.ID,
		Kind:            doc.Kind,
		Number:          doc.Number,
		Title:           doc.Title,
		Status:          doc.Status,
		CreatorID:       doc.CreatorID,
		ApproverID:      doc.ApproverID,
		History:         doc.History,
		Comments:        doc.Comments,
		RejectionReason: doc.RejectionReason,
		DocumentURL:     doc.DocumentURL,
		DocumentHash:    doc.DocumentHash,
	}
}

func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	de := toDomainError(err)
	if de.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeError(w, de.Status, de.Code, de.Message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": message})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
