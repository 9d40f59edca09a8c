// Package token issues and verifies the signed, self-contained credentials
// used by the service: approval grants embedded in email links, and session
// tokens for authenticated in-app actors. Tokens are integrity-protected
// with HMAC-SHA256 over a base64url JSON payload; no server-side state is
// needed to verify one.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"procure/api/internal/util"
)

// Action is the single purpose a grant authorizes.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Grant is the payload of an approval token. It binds one document, one
// approver and one action; the link it travels in works without a login
// session because all authority is carried here.
type Grant struct {
	DocumentID    string `json:"documentId"`
	ApproverID    string `json:"approverId"`
	ApproverRole  string `json:"approverRole"`
	ApproverEmail string `json:"approverEmail"`
	Action        Action `json:"action"`
	JTI           string `json:"jti"`
	IssuedAt      int64  `json:"iat"`
	Exp           int64  `json:"exp"`
}

// Service signs and verifies approval grants with a shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// TTL returns the validity window grants are issued with.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a grant for the given document, approver and action. The
// JTI and timestamps are filled in here; callers supply only the binding
// fields.
func (s *Service) Issue(g Grant) (string, error) {
	now := time.Now()
	g.JTI = util.NewID("tok")
	g.IssuedAt = now.Unix()
	g.Exp = now.Add(s.ttl).Unix()

	payloadBytes, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("marshal grant: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(s.secret, payload), nil
}

// Verify checks a token and returns its grant, or nil for anything wrong
// with it: malformed, bad signature, missing fields, expired. Callers must
// not distinguish the sub-reasons to the end user.
func (s *Service) Verify(token string) *Grant {
	payload, ok := verifySignature(s.secret, token)
	if !ok {
		return nil
	}

	var g Grant
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil
	}
	if g.DocumentID == "" || g.ApproverID == "" || g.JTI == "" || g.Exp == 0 {
		return nil
	}
	if g.Action != ActionApprove && g.Action != ActionReject {
		return nil
	}
	if time.Now().Unix() >= g.Exp {
		return nil
	}
	return &g
}

// ExpiresAt returns the grant's expiry instant.
func (g *Grant) ExpiresAt() time.Time {
	return time.Unix(g.Exp, 0)
}

func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verifySignature splits a payload.signature token, checks the HMAC in
// constant time and returns the decoded payload bytes.
func verifySignature(secret []byte, token string) ([]byte, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return nil, false
	}
	expected := sign(secret, parts[0])
	if !hmac.Equal([]byte(parts[1]), []byte(expected)) {
		return nil, false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, false
	}
	return decoded, true
}
