// Package app implements the approval workflow shared by offers and
// purchase orders, and its HTTP surface. A document moves
// DRAFT → PENDING_APPROVAL → {APPROVED, REJECTED}; privileged creators
// skip straight to APPROVED. Every transition appends to the document's
// immutable approval history and is guarded by a compare-and-set write.
package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"procure/api/internal/authpw"
	"procure/api/internal/domain"
	"procure/api/internal/metrics"
	"procure/api/internal/notify"
	"procure/api/internal/pipeline"
	"procure/api/internal/render"
	"procure/api/internal/store"
	"procure/api/internal/token"
	"procure/api/internal/util"
)

// Repository is the persistence boundary. TransitionDocument must apply
// the expected-status check and the write as one atomic statement.
type Repository interface {
	FindDocument(ctx context.Context, id string) (domain.Document, error)
	CreateDocument(ctx context.Context, doc domain.Document) error
	FindUser(ctx context.Context, id string) (domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	TransitionDocument(ctx context.Context, id string, from, to domain.DocStatus, history []domain.ApprovalAction, update store.DocumentUpdate) (bool, error)
	SetArtifact(ctx context.Context, id, url, hash string) error
	ListUnrendered(ctx context.Context) ([]domain.Document, error)
	Ping(ctx context.Context) error
}

// ArtifactPipeline regenerates the rendered artifact for a snapshot.
type ArtifactPipeline interface {
	Generate(ctx context.Context, doc domain.Document) (url, digest string, err error)
}

// ArtifactVerifier recomputes a stored artifact's digest.
type ArtifactVerifier interface {
	Verify(ctx context.Context, url, expectedDigest string) pipeline.Verification
}

// GrantRegistry optionally consumes grant JTIs so each link works once.
type GrantRegistry interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// Indexer pushes documents into the search index, best-effort.
type Indexer interface {
	IndexDocument(doc domain.Document)
}

type Service struct {
	repo      Repository
	tokens    *token.Service
	sessions  *token.SessionService
	passwords *authpw.Service
	registry  GrantRegistry
	pipeline  ArtifactPipeline
	verifier  ArtifactVerifier
	notifier  notify.Sender
	indexer   Indexer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	baseURL   string
	now       func() time.Time
}

// Options collects the collaborators of the workflow service. Registry
// and Indexer are optional; everything else is required.
type Options struct {
	Repo      Repository
	Tokens    *token.Service
	Sessions  *token.SessionService
	Passwords *authpw.Service
	Registry  GrantRegistry
	Pipeline  ArtifactPipeline
	Verifier  ArtifactVerifier
	Notifier  notify.Sender
	Indexer   Indexer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	BaseURL   string
}

func NewService(opts Options) *Service {
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      opts.Repo,
		tokens:    opts.Tokens,
		sessions:  opts.Sessions,
		passwords: opts.Passwords,
		registry:  opts.Registry,
		pipeline:  opts.Pipeline,
		verifier:  opts.Verifier,
		notifier:  opts.Notifier,
		indexer:   opts.Indexer,
		metrics:   m,
		logger:    logger,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		now:       time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// DraftInput carries the fields a creator supplies for a new document.
type DraftInput struct {
	Kind       domain.DocKind
	Number     string
	Title      string
	ApproverID string
	LineItems  []domain.LineItem
	Comments   string
}

// CreateDraft stores a new DRAFT document owned by the acting user. Line
// item amounts are derived from quantity and unit price, and the total
// from the amounts, so stored money is always internally consistent.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput, actorID string) (domain.Document, error) {
	if in.Kind != domain.KindOffer && in.Kind != domain.KindPurchaseOrder {
		return domain.Document{}, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, in.Kind)
	}
	if strings.TrimSpace(in.Number) == "" || strings.TrimSpace(in.Title) == "" {
		return domain.Document{}, fmt.Errorf("%w: number and title are required", domain.ErrValidation)
	}
	if len(in.LineItems) == 0 {
		return domain.Document{}, fmt.Errorf("%w: at least one line item is required", domain.ErrValidation)
	}

	var total int64
	items := make([]domain.LineItem, len(in.LineItems))
	for i, item := range in.LineItems {
		if item.Quantity <= 0 || item.UnitPricePaise < 0 {
			return domain.Document{}, fmt.Errorf("%w: line item %d has invalid quantity or price", domain.ErrValidation, i+1)
		}
		item.AmountPaise = int64(item.Quantity * float64(item.UnitPricePaise))
		items[i] = item
		total += item.AmountPaise
	}

	doc := domain.Document{
		ID:         util.NewID("doc"),
		Kind:       in.Kind,
		Number:     strings.TrimSpace(in.Number),
		Title:      strings.TrimSpace(in.Title),
		CreatorID:  actorID,
		Status:     domain.StatusDraft,
		LineItems:  items,
		TotalPaise: total,
		Comments:   in.Comments,
	}
	if in.ApproverID != "" {
		if _, err := s.repo.FindUser(ctx, in.ApproverID); err != nil {
			return domain.Document{}, fmt.Errorf("%w: approver %s not found", domain.ErrValidation, in.ApproverID)
		}
		doc.ApproverID = &in.ApproverID
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// GetDocument returns one document by id.
func (s *Service) GetDocument(ctx context.Context, docID string) (domain.Document, error) {
	return s.repo.FindDocument(ctx, docID)
}

// Submit moves a draft into the approval flow. Only the creator may
// submit. A privileged creator's document is approved on the spot;
// otherwise the designated approver is emailed one approve link and one
// reject link, each carrying its own signed single-purpose token. Email
// delivery is best-effort and never fails the submission.
func (s *Service) Submit(ctx context.Context, docID, actorID string) (domain.Document, error) {
	doc, err := s.repo.FindDocument(ctx, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.CreatorID != actorID {
		return domain.Document{}, fmt.Errorf("%w: only the creator may submit", domain.ErrForbidden)
	}
	if doc.Status != domain.StatusDraft {
		return domain.Document{}, fmt.Errorf("%w: document is %s", domain.ErrInvalidState, doc.Status)
	}

	creator, err := s.repo.FindUser(ctx, doc.CreatorID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrMissingCreator, err)
	}

	if creator.CanAutoApprove() {
		history := doc.AppendAction(domain.ActionAutoApproved, actorID, "", domain.StatusApproved, s.now())
		ok, err := s.repo.TransitionDocument(ctx, doc.ID, domain.StatusDraft, domain.StatusApproved, history, store.DocumentUpdate{})
		if err != nil {
			return domain.Document{}, err
		}
		if !ok {
			return domain.Document{}, fmt.Errorf("%w: document left DRAFT concurrently", domain.ErrInvalidState)
		}
		doc.Status = domain.StatusApproved
		doc.History = history
		s.metrics.Transitions.WithLabelValues(string(doc.Kind), string(domain.ActionAutoApproved)).Inc()

		if err := s.generateArtifact(ctx, &doc); err != nil {
			return doc, err
		}
		s.index(doc)
		return doc, nil
	}

	history := doc.AppendAction(domain.ActionSubmit, actorID, "", domain.StatusPendingApproval, s.now())
	ok, err := s.repo.TransitionDocument(ctx, doc.ID, domain.StatusDraft, domain.StatusPendingApproval, history, store.DocumentUpdate{})
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document left DRAFT concurrently", domain.ErrInvalidState)
	}
	doc.Status = domain.StatusPendingApproval
	doc.History = history
	s.metrics.Transitions.WithLabelValues(string(doc.Kind), string(domain.ActionSubmit)).Inc()

	s.requestApproval(ctx, doc, creator)
	s.index(doc)
	return doc, nil
}

// Approve applies the terminal APPROVED transition and regenerates the
// document artifact. The status write and the artifact write are two
// separate operations: if generation fails the approval is already
// durable, the error is surfaced, and the repair pass picks the document
// up later.
func (s *Service) Approve(ctx context.Context, docID, actorID, comments string) (domain.Document, error) {
	doc, err := s.repo.FindDocument(ctx, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.Status != domain.StatusPendingApproval {
		return domain.Document{}, fmt.Errorf("%w: document is %s", domain.ErrInvalidState, doc.Status)
	}
	if approver := doc.Approver(); approver == "" || actorID != approver {
		return domain.Document{}, fmt.Errorf("%w: not the designated approver", domain.ErrForbidden)
	}

	history := doc.AppendAction(domain.ActionApprove, actorID, comments, domain.StatusApproved, s.now())
	var update store.DocumentUpdate
	if comments != "" {
		update.Comments = &comments
	}
	ok, err := s.repo.TransitionDocument(ctx, doc.ID, domain.StatusPendingApproval, domain.StatusApproved, history, update)
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		// Another channel decided first.
		return domain.Document{}, fmt.Errorf("%w: document is no longer pending", domain.ErrInvalidState)
	}
	doc.Status = domain.StatusApproved
	doc.History = history
	if comments != "" {
		doc.Comments = comments
	}
	s.metrics.Transitions.WithLabelValues(string(doc.Kind), string(domain.ActionApprove)).Inc()

	if err := s.generateArtifact(ctx, &doc); err != nil {
		return doc, err
	}

	s.notifyCreator(ctx, doc, "APPROVED", comments)
	s.index(doc)
	return doc, nil
}

// Reject applies the terminal REJECTED transition. No artifact is
// generated for a rejected document.
func (s *Service) Reject(ctx context.Context, docID, actorID, reason string) (domain.Document, error) {
	doc, err := s.repo.FindDocument(ctx, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc.Status != domain.StatusPendingApproval {
		return domain.Document{}, fmt.Errorf("%w: document is %s", domain.ErrInvalidState, doc.Status)
	}
	if approver := doc.Approver(); approver == "" || actorID != approver {
		return domain.Document{}, fmt.Errorf("%w: not the designated approver", domain.ErrForbidden)
	}

	history := doc.AppendAction(domain.ActionReject, actorID, reason, domain.StatusRejected, s.now())
	var update store.DocumentUpdate
	if reason != "" {
		update.RejectionReason = &reason
	}
	ok, err := s.repo.TransitionDocument(ctx, doc.ID, domain.StatusPendingApproval, domain.StatusRejected, history, update)
	if err != nil {
		return domain.Document{}, err
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document is no longer pending", domain.ErrInvalidState)
	}
	doc.Status = domain.StatusRejected
	doc.History = history
	if reason != "" {
		doc.RejectionReason = reason
	}
	s.metrics.Transitions.WithLabelValues(string(doc.Kind), string(domain.ActionReject)).Inc()

	s.notifyCreator(ctx, doc, "REJECTED", reason)
	s.index(doc)
	return doc, nil
}

// HandleEmailAction is the sole bridge between an unauthenticated HTTP
// request and a privileged transition: all authority is carried by the
// token. The grant must match the endpoint it arrived at. Even a valid
// token only succeeds while the document is still pending, so a replayed
// link lands on ErrInvalidState.
func (s *Service) HandleEmailAction(ctx context.Context, tokenStr string, want token.Action, comments string) (domain.Document, error) {
	grant := s.tokens.Verify(tokenStr)
	if grant == nil || grant.Action != want {
		s.metrics.TokenFailures.Inc()
		return domain.Document{}, domain.ErrInvalidToken
	}

	if s.registry != nil {
		first, err := s.registry.Consume(ctx, grant.JTI, time.Until(grant.ExpiresAt()))
		if err != nil {
			// Registry down: fall back to the state guard alone.
			s.logger.Warn("grant registry unavailable", zap.Error(err))
		} else if !first {
			s.metrics.TokenFailures.Inc()
			return domain.Document{}, domain.ErrInvalidToken
		}
	}

	switch want {
	case token.ActionApprove:
		return s.Approve(ctx, grant.DocumentID, grant.ApproverID, comments)
	case token.ActionReject:
		return s.Reject(ctx, grant.DocumentID, grant.ApproverID, comments)
	default:
		return domain.Document{}, domain.ErrInvalidToken
	}
}

// VerifyArtifact rechecks the stored artifact of a document against the
// digest persisted at approval time.
func (s *Service) VerifyArtifact(ctx context.Context, docID string) (pipeline.Verification, error) {
	doc, err := s.repo.FindDocument(ctx, docID)
	if err != nil {
		return pipeline.Verification{}, err
	}
	if doc.DocumentURL == "" || doc.DocumentHash == "" {
		return pipeline.Verification{}, fmt.Errorf("%w: no artifact recorded", domain.ErrInvalidState)
	}
	return s.verifier.Verify(ctx, doc.DocumentURL, doc.DocumentHash), nil
}

// RepairArtifacts regenerates artifacts for documents that were approved
// but whose generation did not complete. Returns how many were repaired.
func (s *Service) RepairArtifacts(ctx context.Context) (int, error) {
	docs, err := s.repo.ListUnrendered(ctx)
	if err != nil {
		return 0, err
	}
	repaired := 0
	for i := range docs {
		if err := s.generateArtifact(ctx, &docs[i]); err != nil {
			s.logger.Warn("artifact repair failed",
				zap.String("documentId", docs[i].ID),
				zap.Error(err))
			continue
		}
		repaired++
	}
	return repaired, nil
}

// Session is an authenticated in-app actor's signed token plus identity.
type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

// SignIn authenticates an in-app actor and issues a session token.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.passwords.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	tok, expiresAt, err := s.sessions.Issue(user.ID, user.DisplayName, user.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     tok,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken resolves a bearer token to session claims.
func (s *Service) SessionFromToken(tok string) (token.SessionClaims, error) {
	return s.sessions.Verify(tok)
}

func (s *Service) generateArtifact(ctx context.Context, doc *domain.Document) error {
	start := time.Now()
	artifactURL, digest, err := s.pipeline.Generate(ctx, *doc)
	s.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.PipelineFailures.Inc()
		s.logger.Error("artifact generation failed",
			zap.String("documentId", doc.ID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPipelineFailure, err)
	}
	if err := s.repo.SetArtifact(ctx, doc.ID, artifactURL, digest); err != nil {
		s.metrics.PipelineFailures.Inc()
		return fmt.Errorf("%w: persist artifact: %v", domain.ErrPipelineFailure, err)
	}
	doc.DocumentURL = artifactURL
	doc.DocumentHash = digest
	return nil
}

// requestApproval issues the two single-purpose tokens and emails the
// approver. Everything in here is best-effort; the submission already
// succeeded.
func (s *Service) requestApproval(ctx context.Context, doc domain.Document, creator domain.User) {
	if doc.ApproverID == nil || *doc.ApproverID == "" {
		s.logger.Warn("no designated approver, approval email skipped",
			zap.String("documentId", doc.ID))
		return
	}
	approver, err := s.repo.FindUser(ctx, *doc.ApproverID)
	if err != nil {
		s.logger.Warn("approver not resolved, approval email skipped",
			zap.String("documentId", doc.ID),
			zap.String("approverId", *doc.ApproverID),
			zap.Error(err))
		return
	}

	approveURL, rejectURL, err := s.approvalLinks(doc, approver)
	if err != nil {
		s.logger.Warn("approval links not issued",
			zap.String("documentId", doc.ID),
			zap.Error(err))
		return
	}

	_ = s.notifier.SendApprovalRequest(approver.Email, notify.ApprovalRequestData{
		ApproverName: approver.DisplayName,
		CreatorName:  creator.DisplayName,
		KindLabel:    doc.Kind.Label(),
		Number:       doc.Number,
		Title:        doc.Title,
		Total:        render.FormatINR(doc.TotalPaise),
		ApproveURL:   approveURL,
		RejectURL:    rejectURL,
		ExpiryHours:  int(s.tokens.TTL().Hours()),
	})
}

func (s *Service) approvalLinks(doc domain.Document, approver domain.User) (string, string, error) {
	grant := token.Grant{
		DocumentID:    doc.ID,
		ApproverID:    approver.ID,
		ApproverRole:  approver.Role,
		ApproverEmail: approver.Email,
	}

	grant.Action = token.ActionApprove
	approveToken, err := s.tokens.Issue(grant)
	if err != nil {
		return "", "", err
	}
	grant.Action = token.ActionReject
	rejectToken, err := s.tokens.Issue(grant)
	if err != nil {
		return "", "", err
	}

	return s.baseURL + "/api/approvals/approve?token=" + url.QueryEscape(approveToken),
		s.baseURL + "/api/approvals/reject?token=" + url.QueryEscape(rejectToken),
		nil
}

func (s *Service) notifyCreator(ctx context.Context, doc domain.Document, outcome, note string) {
	creator, err := s.repo.FindUser(ctx, doc.CreatorID)
	if err != nil {
		s.logger.Warn("creator not resolved, decision notice skipped",
			zap.String("documentId", doc.ID),
			zap.Error(err))
		return
	}
	_ = s.notifier.SendDecisionNotice(creator.Email, notify.DecisionNoticeData{
		CreatorName: creator.DisplayName,
		KindLabel:   doc.Kind.Label(),
		Number:      doc.Number,
		Title:       doc.Title,
		Outcome:     outcome,
		Note:        note,
	})
}

func (s *Service) index(doc domain.Document) {
	if s.indexer != nil {
		s.indexer.IndexDocument(doc)
	}
}
