package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrExpiredToken is returned for a correctly signed token past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
)

// Grant is the content of a verified download token.
type Grant struct {
	Owner      string
	ObjectPath string
	ExpiresAt  time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens of the form owner.path.expiry.mac, each part base64url.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner returns a signer; a non-positive ttl means one hour.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate binds owner to objectPath until now+TTL.
func (s *SignedURLSigner) Generate(owner, objectPath string) (string, time.Time, error) {
	if owner == "" || objectPath == "" {
		return "", time.Time{}, errors.New("owner and object path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := encodeSegment(owner) + "." + encodeSegment(objectPath) + "." + strconv.FormatInt(expiresAt.Unix(), 10)
	return payload + "." + s.mac(payload), expiresAt, nil
}

// Parse verifies token. allowExpired skips the expiry check for sweepers that only need the path.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Grant, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return Grant{}, ErrInvalidToken
	}
	payload, mac := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(s.mac(payload)), []byte(mac)) {
		return Grant{}, ErrInvalidToken
	}

	parts := strings.Split(payload, ".")
	if len(parts) != 3 {
		return Grant{}, ErrInvalidToken
	}
	owner, err := decodeSegment(parts[0])
	if err != nil {
		return Grant{}, ErrInvalidToken
	}
	objectPath, err := decodeSegment(parts[1])
	if err != nil {
		return Grant{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Grant{}, ErrInvalidToken
	}

	grant := Grant{Owner: owner, ObjectPath: objectPath, ExpiresAt: time.Unix(exp, 0)}
	if !allowExpired && !s.now().Before(grant.ExpiresAt) {
		return grant, ErrExpiredToken
	}
	return grant, nil
}

func (s *SignedURLSigner) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func encodeSegment(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decodeSegment(v string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	return string(raw), err
}
