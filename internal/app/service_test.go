package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"procure/api/internal/authpw"
	"procure/api/internal/blob"
	"procure/api/internal/domain"
	"procure/api/internal/notify"
	"procure/api/internal/pipeline"
	"procure/api/internal/render"
	"procure/api/internal/store"
	"procure/api/internal/token"
)

type fakeRepo struct {
	mu    sync.Mutex
	docs  map[string]domain.Document
	users map[string]domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[string]domain.Document),
		users: make(map[string]domain.User),
	}
}

func (r *fakeRepo) FindDocument(ctx context.Context, id string) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

func (r *fakeRepo) CreateDocument(ctx context.Context, doc domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeRepo) FindUser(ctx context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *fakeRepo) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *fakeRepo) TransitionDocument(ctx context.Context, id string, from, to domain.DocStatus, history []domain.ApprovalAction, update store.DocumentUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status != from {
		return false, nil
	}
	doc.Status = to
	doc.History = history
	if update.Comments != nil {
		doc.Comments = *update.Comments
	}
	if update.RejectionReason != nil {
		doc.RejectionReason = *update.RejectionReason
	}
	r.docs[id] = doc
	return true, nil
}

func (r *fakeRepo) SetArtifact(ctx context.Context, id, url, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.DocumentURL = url
	doc.DocumentHash = hash
	r.docs[id] = doc
	return nil
}

func (r *fakeRepo) ListUnrendered(ctx context.Context) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Document
	for _, doc := range r.docs {
		if doc.Status == domain.StatusApproved && doc.DocumentURL == "" {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }

type fakeNotifier struct {
	mu        sync.Mutex
	requests  []notify.ApprovalRequestData
	decisions []notify.DecisionNoticeData
	err       error
}

func (n *fakeNotifier) SendApprovalRequest(to string, data notify.ApprovalRequestData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.requests = append(n.requests, data)
	return nil
}

func (n *fakeNotifier) SendDecisionNotice(to string, data notify.DecisionNoticeData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.decisions = append(n.decisions, data)
	return nil
}

type fakePipeline struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *fakePipeline) Generate(ctx context.Context, doc domain.Document) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", "", p.err
	}
	return fmt.Sprintf("mem://%s/%d", doc.Number, p.calls), "digest-" + doc.ID, nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	consumed map[string]bool
	err      error
}

func (r *fakeRegistry) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if r.consumed == nil {
		r.consumed = make(map[string]bool)
	}
	if r.consumed[jti] {
		return false, nil
	}
	r.consumed[jti] = true
	return true, nil
}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	notifier *fakeNotifier
	pipe     *fakePipeline
	tokens   *token.Service
}

func strptr(s string) *string { return &s }

func newTestEnv(t *testing.T, registry GrantRegistry) *testEnv {
	t.Helper()
	repo := newFakeRepo()
	repo.users["buyer-1"] = domain.User{ID: "buyer-1", DisplayName: "Asha Nair", Email: "asha@example.com", Role: domain.RoleBuyer}
	repo.users["approver-1"] = domain.User{ID: "approver-1", DisplayName: "Vikram Rao", Email: "vikram@example.com", Role: domain.RoleApprover}
	repo.users["admin-1"] = domain.User{ID: "admin-1", DisplayName: "Meera Iyer", Email: "meera@example.com", Role: domain.RoleAdmin}

	notifier := &fakeNotifier{}
	pipe := &fakePipeline{}
	tokens := token.NewService("grant-secret", 72*time.Hour)

	svc := NewService(Options{
		Repo:      repo,
		Tokens:    tokens,
		Sessions:  token.NewSessionService("session-secret", time.Hour),
		Passwords: authpw.NewService(repo),
		Registry:  registry,
		Pipeline:  pipe,
		Notifier:  notifier,
		BaseURL:   "https://procure.example.com/",
	})
	return &testEnv{svc: svc, repo: repo, notifier: notifier, pipe: pipe, tokens: tokens}
}

func draftDocument(id, creatorID string, approverID *string) domain.Document {
	return domain.Document{
		ID:         id,
		Kind:       domain.KindPurchaseOrder,
		Number:     "PO-2026-001",
		Title:      "Laboratory consumables",
		CreatorID:  creatorID,
		ApproverID: approverID,
		Status:     domain.StatusDraft,
		LineItems: []domain.LineItem{
			{Name: "Nitrile gloves", Quantity: 20, Unit: "box", UnitPricePaise: 45000, AmountPaise: 900000},
		},
		TotalPaise: 900000,
	}
}

func TestCreateDraft(t *testing.T) {
	env := newTestEnv(t, nil)

	doc, err := env.svc.CreateDraft(context.Background(), DraftInput{
		Kind:       domain.KindOffer,
		Number:     "OFF-2026-042",
		Title:      "Annual maintenance contract",
		ApproverID: "approver-1",
		LineItems: []domain.LineItem{
			{Name: "AMC year 1", Quantity: 1, Unit: "nos", UnitPricePaise: 25000000},
			{Name: "Spares", Quantity: 4, Unit: "set", UnitPricePaise: 150000},
		},
	}, "buyer-1")
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}
	if doc.Status != domain.StatusDraft {
		t.Fatalf("status = %s, want DRAFT", doc.Status)
	}
	if doc.CreatorID != "buyer-1" {
		t.Errorf("creator = %q", doc.CreatorID)
	}
	if doc.ApproverID == nil || *doc.ApproverID != "approver-1" {
		t.Errorf("approver = %v", doc.ApproverID)
	}
	if doc.TotalPaise != 25600000 {
		t.Errorf("total = %d paise, want 25600000", doc.TotalPaise)
	}
	if doc.LineItems[1].AmountPaise != 600000 {
		t.Errorf("line amount = %d paise, want 600000", doc.LineItems[1].AmountPaise)
	}

	stored, err := env.repo.FindDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("stored document not found: %v", err)
	}
	if stored.Number != "OFF-2026-042" {
		t.Errorf("stored number = %q", stored.Number)
	}
}

func TestCreateDraftValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	item := domain.LineItem{Name: "x", Quantity: 1, Unit: "nos", UnitPricePaise: 100}

	cases := []struct {
		name string
		in   DraftInput
	}{
		{"unknown kind", DraftInput{Kind: "INVOICE", Number: "N-1", Title: "t", LineItems: []domain.LineItem{item}}},
		{"missing number", DraftInput{Kind: domain.KindOffer, Title: "t", LineItems: []domain.LineItem{item}}},
		{"missing title", DraftInput{Kind: domain.KindOffer, Number: "N-1", LineItems: []domain.LineItem{item}}},
		{"no line items", DraftInput{Kind: domain.KindOffer, Number: "N-1", Title: "t"}},
		{"zero quantity", DraftInput{Kind: domain.KindOffer, Number: "N-1", Title: "t",
			LineItems: []domain.LineItem{{Name: "x", Quantity: 0, UnitPricePaise: 100}}}},
		{"unknown approver", DraftInput{Kind: domain.KindOffer, Number: "N-1", Title: "t",
			ApproverID: "ghost", LineItems: []domain.LineItem{item}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.svc.CreateDraft(context.Background(), tc.in, "buyer-1"); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("CreateDraft() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSubmitRequestsApproval(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr("approver-1"))

	doc, err := env.svc.Submit(context.Background(), "doc-1", "buyer-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if doc.Status != domain.StatusPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", doc.Status)
	}
	if len(doc.History) != 1 || doc.History[0].Type != domain.ActionSubmit {
		t.Fatalf("history = %+v, want one SUBMIT action", doc.History)
	}

	if len(env.notifier.requests) != 1 {
		t.Fatalf("approval requests sent = %d, want 1", len(env.notifier.requests))
	}
	req := env.notifier.requests[0]
	if req.ApproverName != "Vikram Rao" {
		t.Errorf("ApproverName = %q", req.ApproverName)
	}
	if req.Total != "₹9,000.00" {
		t.Errorf("Total = %q, want ₹9,000.00", req.Total)
	}
	if !strings.Contains(req.ApproveURL, "/api/approvals/approve?token=") {
		t.Errorf("ApproveURL = %q", req.ApproveURL)
	}
	if !strings.Contains(req.RejectURL, "/api/approvals/reject?token=") {
		t.Errorf("RejectURL = %q", req.RejectURL)
	}
	if env.pipe.calls != 0 {
		t.Errorf("pipeline calls = %d, want 0 before approval", env.pipe.calls)
	}
}

func TestSubmitOnlyByCreator(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr("approver-1"))

	if _, err := env.svc.Submit(context.Background(), "doc-1", "approver-1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Submit() error = %v, want ErrForbidden", err)
	}
}

func TestSubmitRequiresDraft(t *testing.T) {
	env := newTestEnv(t, nil)
	doc := draftDocument("doc-1", "buyer-1", strptr("approver-1"))
	doc.Status = domain.StatusApproved
	env.repo.docs["doc-1"] = doc

	if _, err := env.svc.Submit(context.Background(), "doc-1", "buyer-1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("Submit() error = %v, want ErrInvalidState", err)
	}
}

func TestSubmitByPrivilegedCreatorAutoApproves(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo.docs["doc-1"] = draftDocument("doc-1", "admin-1", nil)

	doc, err := env.svc.Submit(context.Background(), "doc-1", "admin-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if doc.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", doc.Status)
	}
	if len(doc.History) != 1 || doc.History[0].Type != domain.ActionAutoApproved {
		t.Fatalf("history = %+v, want one AUTO_APPROVED action", doc.History)
	}
	if doc.DocumentURL == "" || doc.DocumentHash == "" {
		t.Fatalf("artifact not recorded: url=%q hash=%q", doc.DocumentURL, doc.DocumentHash)
	}
	if len(env.notifier.requests) != 0 {
		t.Errorf("approval requests sent = %d, want 0", len(env.notifier.requests))
	}
}

func TestSubmitSucceedsWhenNotifierFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.notifier.err = errors.New("smtp down")
	env.repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr("approver-1"))

	doc, err := env.svc.Submit(context.Background(), "doc-1", "buyer-1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if doc.Status != domain.StatusPendingApproval {
		t.Fatalf("status = %s, want PENDING_APPROVAL", doc.Status)
	}
}

func submitted(t *testing.T, env *testEnv, approverID string) {
	t.Helper()
	env.repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr(approverID))
	if _, err := env.svc.Submit(context.Background(), "doc-1", "buyer-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")

	doc, err := env.svc.Approve(context.Background(), "doc-1", "approver-1", "Looks fine")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if doc.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", doc.Status)
	}
	if doc.Comments != "Looks fine" {
		t.Errorf("comments = %q", doc.Comments)
	}
	if doc.DocumentURL == "" || doc.DocumentHash == "" {
		t.Fatalf("artifact not recorded: url=%q hash=%q", doc.DocumentURL, doc.DocumentHash)
	}
	last := doc.History[len(doc.History)-1]
	if last.Type != domain.ActionApprove || last.PrevStatus != domain.StatusPendingApproval || last.NewStatus != domain.StatusApproved {
		t.Fatalf("last action = %+v", last)
	}
	if len(env.notifier.decisions) != 1 || env.notifier.decisions[0].Outcome != "APPROVED" {
		t.Fatalf("decisions = %+v, want one APPROVED notice", env.notifier.decisions)
	}
}

func TestApproveOnlyByDesignatedApprover(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")

	if _, err := env.svc.Approve(context.Background(), "doc-1", "buyer-1", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Approve() error = %v, want ErrForbidden", err)
	}
}

func TestApproveTerminalState(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	if _, err := env.svc.Approve(context.Background(), "doc-1", "approver-1", ""); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}

	if _, err := env.svc.Approve(context.Background(), "doc-1", "approver-1", ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("second Approve() error = %v, want ErrInvalidState", err)
	}
}

func TestReject(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")

	doc, err := env.svc.Reject(context.Background(), "doc-1", "approver-1", "Budget exceeded")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if doc.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", doc.Status)
	}
	if doc.RejectionReason != "Budget exceeded" {
		t.Errorf("rejection reason = %q", doc.RejectionReason)
	}
	if env.pipe.calls != 0 {
		t.Errorf("pipeline calls = %d, want 0 for a rejected document", env.pipe.calls)
	}
	if len(env.notifier.decisions) != 1 || env.notifier.decisions[0].Outcome != "REJECTED" {
		t.Fatalf("decisions = %+v, want one REJECTED notice", env.notifier.decisions)
	}
}

func TestApprovalRaceHasOneWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")

	_, approveErr := env.svc.Approve(context.Background(), "doc-1", "approver-1", "")
	_, rejectErr := env.svc.Reject(context.Background(), "doc-1", "approver-1", "changed my mind")

	if approveErr != nil {
		t.Fatalf("Approve() error = %v", approveErr)
	}
	if !errors.Is(rejectErr, domain.ErrInvalidState) {
		t.Fatalf("Reject() after approve error = %v, want ErrInvalidState", rejectErr)
	}
	doc, _ := env.repo.FindDocument(context.Background(), "doc-1")
	if doc.Status != domain.StatusApproved {
		t.Fatalf("stored status = %s, want APPROVED", doc.Status)
	}
}

func TestApprovePipelineFailureLeavesStatusDurable(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	env.pipe.err = errors.New("chromium crashed")

	_, err := env.svc.Approve(context.Background(), "doc-1", "approver-1", "")
	if !errors.Is(err, domain.ErrPipelineFailure) {
		t.Fatalf("Approve() error = %v, want ErrPipelineFailure", err)
	}

	doc, _ := env.repo.FindDocument(context.Background(), "doc-1")
	if doc.Status != domain.StatusApproved {
		t.Fatalf("stored status = %s, want APPROVED despite pipeline failure", doc.Status)
	}
	if doc.DocumentURL != "" {
		t.Fatalf("artifact url = %q, want empty", doc.DocumentURL)
	}
}

func TestRepairArtifacts(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	env.pipe.err = errors.New("chromium crashed")
	if _, err := env.svc.Approve(context.Background(), "doc-1", "approver-1", ""); !errors.Is(err, domain.ErrPipelineFailure) {
		t.Fatalf("Approve() error = %v, want ErrPipelineFailure", err)
	}

	env.pipe.err = nil
	repaired, err := env.svc.RepairArtifacts(context.Background())
	if err != nil {
		t.Fatalf("RepairArtifacts() error = %v", err)
	}
	if repaired != 1 {
		t.Fatalf("repaired = %d, want 1", repaired)
	}
	doc, _ := env.repo.FindDocument(context.Background(), "doc-1")
	if doc.DocumentURL == "" || doc.DocumentHash == "" {
		t.Fatalf("artifact not repaired: url=%q hash=%q", doc.DocumentURL, doc.DocumentHash)
	}
}

func issuedGrant(t *testing.T, env *testEnv, action token.Action) string {
	t.Helper()
	tok, err := env.tokens.Issue(token.Grant{
		DocumentID:    "doc-1",
		ApproverID:    "approver-1",
		ApproverRole:  domain.RoleApprover,
		ApproverEmail: "vikram@example.com",
		Action:        action,
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func TestHandleEmailActionApprove(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)

	doc, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, "via email")
	if err != nil {
		t.Fatalf("HandleEmailAction() error = %v", err)
	}
	if doc.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", doc.Status)
	}
	if doc.Comments != "via email" {
		t.Errorf("comments = %q", doc.Comments)
	}
}

func TestHandleEmailActionRejectsWrongEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)

	if _, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionReject, ""); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("HandleEmailAction() error = %v, want ErrInvalidToken", err)
	}
	doc, _ := env.repo.FindDocument(context.Background(), "doc-1")
	if doc.Status != domain.StatusPendingApproval {
		t.Fatalf("stored status = %s, want PENDING_APPROVAL untouched", doc.Status)
	}
}

func TestHandleEmailActionTamperedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)
	tampered := tok[:len(tok)-2] + "xx"

	if _, err := env.svc.HandleEmailAction(context.Background(), tampered, token.ActionApprove, ""); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("HandleEmailAction() error = %v, want ErrInvalidToken", err)
	}
}

func TestHandleEmailActionReplayBlockedByState(t *testing.T) {
	env := newTestEnv(t, nil)
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)

	if _, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, ""); err != nil {
		t.Fatalf("first use error = %v", err)
	}
	if _, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, ""); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("replay error = %v, want ErrInvalidState", err)
	}
}

func TestHandleEmailActionReplayBlockedByRegistry(t *testing.T) {
	env := newTestEnv(t, &fakeRegistry{})
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)

	if _, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, ""); err != nil {
		t.Fatalf("first use error = %v", err)
	}
	if _, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, ""); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("replay error = %v, want ErrInvalidToken", err)
	}
}

func TestHandleEmailActionRegistryFailureFallsOpen(t *testing.T) {
	env := newTestEnv(t, &fakeRegistry{err: errors.New("redis down")})
	submitted(t, env, "approver-1")
	tok := issuedGrant(t, env, token.ActionApprove)

	doc, err := env.svc.HandleEmailAction(context.Background(), tok, token.ActionApprove, "")
	if err != nil {
		t.Fatalf("HandleEmailAction() error = %v", err)
	}
	if doc.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", doc.Status)
	}
}

func TestVerifyArtifact(t *testing.T) {
	repo := newFakeRepo()
	repo.users["buyer-1"] = domain.User{ID: "buyer-1", DisplayName: "Asha Nair", Email: "asha@example.com", Role: domain.RoleBuyer}
	repo.users["approver-1"] = domain.User{ID: "approver-1", DisplayName: "Vikram Rao", Email: "vikram@example.com", Role: domain.RoleApprover}

	blobs := blob.NewMemoryStore()
	renderer := render.NewHTMLRenderer()
	svc := NewService(Options{
		Repo:      repo,
		Tokens:    token.NewService("grant-secret", time.Hour),
		Sessions:  token.NewSessionService("session-secret", time.Hour),
		Passwords: authpw.NewService(repo),
		Pipeline:  pipeline.New(renderer, blobs, nil),
		Verifier:  pipeline.NewVerifier(blobs),
		Notifier:  &fakeNotifier{},
		BaseURL:   "https://procure.example.com",
	})

	ctx := context.Background()
	repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr("approver-1"))
	if _, err := svc.Submit(ctx, "doc-1", "buyer-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.Approve(ctx, "doc-1", "approver-1", ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	result, err := svc.VerifyArtifact(ctx, "doc-1")
	if err != nil {
		t.Fatalf("VerifyArtifact() error = %v", err)
	}
	if !result.IsValid || result.Err != nil {
		t.Fatalf("verification = %+v, want valid", result)
	}

	doc, _ := repo.FindDocument(ctx, "doc-1")
	blobs.Replace(doc.DocumentURL, []byte("tampered"))
	result, err = svc.VerifyArtifact(ctx, "doc-1")
	if err != nil {
		t.Fatalf("VerifyArtifact() after tamper error = %v", err)
	}
	if result.IsValid {
		t.Fatal("verification passed for a tampered artifact")
	}
	if result.Err != nil {
		t.Fatalf("tamper reported as error %v, want mismatch value", result.Err)
	}
}

func TestVerifyArtifactWithoutArtifact(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo.docs["doc-1"] = draftDocument("doc-1", "buyer-1", strptr("approver-1"))

	if _, err := env.svc.VerifyArtifact(context.Background(), "doc-1"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("VerifyArtifact() error = %v, want ErrInvalidState", err)
	}
}

func TestSignInIssuesVerifiableSession(t *testing.T) {
	env := newTestEnv(t, nil)
	hash, err := authpw.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := env.repo.users["buyer-1"]
	user.PasswordHash = hash
	env.repo.users["buyer-1"] = user

	session, err := env.svc.SignIn(context.Background(), "asha@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	claims, err := env.svc.SessionFromToken(session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if claims.Sub != "buyer-1" || claims.Role != domain.RoleBuyer {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := env.svc.SignIn(context.Background(), "asha@example.com", "wrong"); !errors.Is(err, authpw.ErrInvalidCredentials) {
		t.Fatalf("SignIn() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
}
