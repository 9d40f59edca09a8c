package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"procure/api/internal/util"
)

// SessionClaims identify an authenticated in-app actor.
type SessionClaims struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
	Role string `json:"role"`
	JTI  string `json:"jti"`
	Exp  int64  `json:"exp"`
}

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("expired session token")
)

// SessionService signs and verifies in-app session tokens. It shares the
// wire format with approval grants but uses its own secret, so a leaked
// approval link secret cannot mint sessions and vice versa.
type SessionService struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	return &SessionService{secret: []byte(secret), ttl: ttl}
}

func (s *SessionService) Issue(sub, name, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.ttl)
	claims := SessionClaims{
		Sub:  sub,
		Name: name,
		Role: role,
		JTI:  util.NewID("ses"),
		Exp:  expiresAt.Unix(),
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(s.secret, payload), expiresAt, nil
}

func (s *SessionService) Verify(tok string) (SessionClaims, error) {
	payload, ok := verifySignature(s.secret, tok)
	if !ok {
		return SessionClaims{}, ErrInvalidSession
	}
	var claims SessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return SessionClaims{}, ErrInvalidSession
	}
	if claims.Sub == "" || claims.JTI == "" || claims.Exp == 0 {
		return SessionClaims{}, ErrInvalidSession
	}
	if time.Now().Unix() >= claims.Exp {
		return SessionClaims{}, ErrExpiredSession
	}
	return claims, nil
}
