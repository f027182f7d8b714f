package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// AuditSigner produces HMAC-SHA256 signatures for scoring audit entries.
// Entries are append-only; the signature makes after-the-fact edits
// detectable.
type AuditSigner struct {
	secret []byte
}

// NewAuditSigner creates a signer from a base64-encoded HMAC secret
func NewAuditSigner(secretBase64 string) (*AuditSigner, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HMAC secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("HMAC secret must not be empty")
	}
	return &AuditSigner{secret: secret}, nil
}

// Sign creates the signature for an audit entry's critical fields
func (s *AuditSigner) Sign(entryID, action, entityType, entityID, timestamp string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", entryID, action, entityType, entityID, timestamp)
	return s.hmac(data)
}

// Verify checks an audit entry signature
func (s *AuditSigner) Verify(entryID, action, entityType, entityID, timestamp, signature string) bool {
	expected := s.Sign(entryID, action, entityType, entityID, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ChainHash links a record to its predecessor for tamper-evident ordering
func (s *AuditSigner) ChainHash(prevHash string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *AuditSigner) hmac(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// MaskCustomerRef masks a customer reference for log output
func MaskCustomerRef(ref string) string {
	if len(ref) < 4 {
		return "****"
	}
	return "****" + ref[len(ref)-4:]
}
