// Package security signs analysis responses so downstream consumers can
// verify that a ranking was produced by this service and not altered in
// transit.
package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// ResponseSigner attaches cryptographic signatures to analysis responses.
type ResponseSigner struct {
	privateKey       *ecdsa.PrivateKey
	attestKey        *ecdsa.PrivateKey
	publicKeyEncoded string
	opts             SignerOptions
}

// SignerOptions configures response signing behavior
type SignerOptions struct {
	Enabled           bool          `json:"enabled"`
	SignatureValidity time.Duration `json:"signature_validity"`
}

// NewResponseSigner generates a fresh ECDSA keypair and returns a signer.
// Keys are per-process; restart invalidates old signatures by design of the
// validity window, not of the key itself.
func NewResponseSigner(opts SignerOptions) (*ResponseSigner, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	// Attestations use the secp256k1 curve expected by on-chain verifiers.
	attestKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation key: %w", err)
	}

	publicKeyBytes := elliptic.Marshal(elliptic.P256(), privateKey.PublicKey.X, privateKey.PublicKey.Y)
	publicKeyEncoded := base64.StdEncoding.EncodeToString(publicKeyBytes)

	if opts.SignatureValidity <= 0 {
		opts.SignatureValidity = 5 * time.Minute
	}

	s := &ResponseSigner{
		privateKey:       privateKey,
		attestKey:        attestKey,
		publicKeyEncoded: publicKeyEncoded,
		opts:             opts,
	}

	logrus.Infof("Response signer initialized with public key: %s", publicKeyEncoded[:16]+"...")
	return s, nil
}

// Sign wraps a response payload with an ECDSA signature block. When signing
// is disabled the payload is returned as a plain map, unmodified.
func (s *ResponseSigner) Sign(payload interface{}) (map[string]interface{}, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if !s.opts.Enabled {
		return result, nil
	}

	// Hash the canonical map form (sorted keys) rather than the struct
	// marshal, so a consumer can rebuild the exact signed bytes from the
	// JSON-transported payload.
	canonical, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	hash := sha256.Sum256(canonical)
	r, sigS, err := ecdsa.Sign(rand.Reader, s.privateKey, hash[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	signature := append(padTo32(r.Bytes()), padTo32(sigS.Bytes())...)
	now := time.Now()

	result["_signature"] = map[string]interface{}{
		"signature":  base64.StdEncoding.EncodeToString(signature),
		"publicKey":  s.publicKeyEncoded,
		"algorithm":  "ECDSA-P256-SHA256",
		"timestamp":  now.Unix(),
		"validUntil": now.Add(s.opts.SignatureValidity).Unix(),
	}

	return result, nil
}

// Verify checks the signature block produced by Sign. It returns an error if
// the block is missing, expired, malformed or does not match the payload.
func (s *ResponseSigner) Verify(signed map[string]interface{}) error {
	sigMeta, ok := signed["_signature"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("signature metadata missing")
	}

	signatureStr, ok := sigMeta["signature"].(string)
	if !ok {
		return fmt.Errorf("invalid signature format")
	}
	publicKeyStr, ok := sigMeta["publicKey"].(string)
	if !ok {
		return fmt.Errorf("invalid public key format")
	}
	validUntil, ok := unixValue(sigMeta["validUntil"])
	if !ok {
		return fmt.Errorf("invalid validUntil format")
	}

	if time.Now().Unix() > validUntil {
		return fmt.Errorf("signature expired at %v", time.Unix(validUntil, 0))
	}

	signatureBytes, err := base64.StdEncoding.DecodeString(signatureStr)
	if err != nil {
		return fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(signatureBytes) != 64 {
		return fmt.Errorf("invalid signature length: %d", len(signatureBytes))
	}

	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKeyStr)
	if err != nil {
		return fmt.Errorf("failed to decode public key: %w", err)
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), publicKeyBytes)
	if x == nil {
		return fmt.Errorf("failed to unmarshal public key")
	}
	publicKey := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}

	// The signature covers the payload without its signature block.
	payloadCopy := make(map[string]interface{}, len(signed))
	for k, v := range signed {
		if k != "_signature" {
			payloadCopy[k] = v
		}
	}
	payloadBytes, err := json.Marshal(payloadCopy)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	hash := sha256.Sum256(payloadBytes)

	r := new(big.Int).SetBytes(signatureBytes[:32])
	sigS := new(big.Int).SetBytes(signatureBytes[32:])
	if !ecdsa.Verify(publicKey, hash[:], r, sigS) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// Attestation produces a Keccak-256 digest and secp256k1-style signature of
// the payload, suitable for on-chain verification of a published ranking.
func (s *ResponseSigner) Attestation(payload interface{}) (map[string]interface{}, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	keccakHash := crypto.Keccak256Hash(payloadBytes)
	signature, err := crypto.Sign(keccakHash.Bytes(), s.attestKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign attestation: %w", err)
	}

	return map[string]interface{}{
		"keccak256Hash": keccakHash.Hex(),
		"signature":     fmt.Sprintf("0x%x", signature),
		"publicKey":     fmt.Sprintf("0x%x", crypto.FromECDSAPub(&s.attestKey.PublicKey)),
		"timestamp":     time.Now().Unix(),
	}, nil
}

// GetPublicKey returns the base64-encoded public key
func (s *ResponseSigner) GetPublicKey() string {
	return s.publicKeyEncoded
}

// unixValue reads a unix timestamp that may arrive as the int64 Sign stores,
// or as the float64 or json.Number a JSON decoder produces.
func unixValue(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	}
	return 0, false
}

// padTo32 left-pads a big-endian integer to 32 bytes so signature halves
// always occupy fixed offsets.
func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
