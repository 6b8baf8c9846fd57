package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token layout: version(1) | user uuid(16) | expiry unix seconds(8) | hmac prefix(16).
const (
	tokenVersion      byte = 1
	tokenVersionSize       = 1
	tokenUserSize          = 16
	tokenExpirySize        = 8
	tokenMACSize           = 16
	tokenBodySize          = tokenVersionSize + tokenUserSize + tokenExpirySize
	tokenSize              = tokenBodySize + tokenMACSize
	sessionTokenBytes      = 24

	// DefaultTokenTTL is used when no TTL is configured.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// tokenPurpose keeps signatures made with a shared secret from being
// accepted by another service using the same key.
var tokenPurpose = []byte("sentiment-dashboard/profile-token")

var (
	ErrAuthTokenInvalid = errors.New("invalid auth token")
	ErrAuthTokenExpired = errors.New("auth token expired")
)

// AuthTokenPayload contains the decoded auth token data.
type AuthTokenPayload struct {
	UserID    string
	ExpiresAt time.Time
}

// AuthTokenService signs and verifies bearer tokens that bind a caller to a
// persistent profile.
type AuthTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthTokenService creates a token service. A non-positive ttl falls back
// to DefaultTokenTTL.
func NewAuthTokenService(secret string, ttl time.Duration) *AuthTokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &AuthTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate issues a token for userID, which must be a UUID.
func (s *AuthTokenService) Generate(userID string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("parse user id: %w", err)
	}

	token := make([]byte, tokenBodySize, tokenSize)
	token[0] = tokenVersion
	copy(token[tokenVersionSize:], id[:])

	//nolint:gosec // Unix timestamps fit in uint64
	binary.BigEndian.PutUint64(token[tokenVersionSize+tokenUserSize:], uint64(s.now().Add(s.ttl).Unix()))

	token = append(token, s.mac(token)...)

	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Verify checks the signature and expiry of token.
func (s *AuthTokenService) Verify(token string) (*AuthTokenPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenSize || raw[0] != tokenVersion {
		return nil, ErrAuthTokenInvalid
	}

	body, sig := raw[:tokenBodySize], raw[tokenBodySize:]
	if !hmac.Equal(sig, s.mac(body)) {
		return nil, ErrAuthTokenInvalid
	}

	id, err := uuid.FromBytes(body[tokenVersionSize : tokenVersionSize+tokenUserSize])
	if err != nil {
		return nil, ErrAuthTokenInvalid
	}

	//nolint:gosec // Unix timestamps fit in int64
	expiresAt := time.Unix(int64(binary.BigEndian.Uint64(body[tokenVersionSize+tokenUserSize:])), 0)
	if !s.now().Before(expiresAt) {
		return nil, ErrAuthTokenExpired
	}

	return &AuthTokenPayload{UserID: id.String(), ExpiresAt: expiresAt}, nil
}

// mac returns the truncated HMAC-SHA256 of body.
func (s *AuthTokenService) mac(body []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(tokenPurpose)
	h.Write(body)

	return h.Sum(nil)[:tokenMACSize]
}

// GenerateSessionToken returns a random anonymous session id.
func GenerateSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
