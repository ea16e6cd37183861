package passtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Verification failure modes. Signature mismatches deliberately carry no
// further detail about what diverged.
var (
	ErrMalformed        = errors.New("malformed pass token")
	ErrInvalidSignature = errors.New("invalid pass token signature")
	ErrExpired          = errors.New("pass token expired")
)

// Claims is the payload bound by a pass token signature.
type Claims struct {
	OutpassID string
	SubjectID string
	IssuedAt  time.Time
}

// Signer mints and verifies HMAC-signed pass tokens. Tokens are valid for a
// fixed window after issuance and carry no other state, so verification
// needs neither storage nor network.
type Signer struct {
	secret []byte
	window time.Duration
}

// NewSigner constructs a signer with the provided secret and validity window.
func NewSigner(secret string, window time.Duration) *Signer {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), window: window}
}

// Sign produces a scannable token for the given outpass and subject.
// The serialized form is canonical: four dot-joined segments, with the
// identifiers base64url-encoded and the issue time in epoch milliseconds,
// so the same claims always sign to the same token.
func (s *Signer) Sign(outpassID, subjectID string, issuedAt time.Time) (string, error) {
	if outpassID == "" || subjectID == "" {
		return "", fmt.Errorf("outpassID and subjectID required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	millis := issuedAt.UTC().UnixMilli()
	signature := s.signature(outpassID, subjectID, millis)
	parts := []string{
		base64.RawURLEncoding.EncodeToString([]byte(outpassID)),
		base64.RawURLEncoding.EncodeToString([]byte(subjectID)),
		strconv.FormatInt(millis, 10),
		signature,
	}
	return strings.Join(parts, "."), nil
}

// Verify recomputes the signature over the claimed fields and enforces the
// validity window against now. On success the embedded claims are returned;
// the caller still has to confirm the referenced outpass is scannable.
func (s *Signer) Verify(token string, now time.Time) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrMalformed
	}
	rawOutpassID, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrMalformed
	}
	rawSubjectID, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrMalformed
	}
	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}

	expected := s.signature(string(rawOutpassID), string(rawSubjectID), millis)
	if !hmac.Equal([]byte(expected), []byte(parts[3])) {
		return nil, ErrInvalidSignature
	}

	issuedAt := time.UnixMilli(millis).UTC()
	if now.Sub(issuedAt) >= s.window {
		return nil, ErrExpired
	}

	return &Claims{
		OutpassID: string(rawOutpassID),
		SubjectID: string(rawSubjectID),
		IssuedAt:  issuedAt,
	}, nil
}

func (s *Signer) signature(outpassID, subjectID string, issuedAtMillis int64) string {
	payload := fmt.Sprintf("%s|%s|%d", outpassID, subjectID, issuedAtMillis)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
