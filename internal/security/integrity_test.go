package security

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Profile   string  `json:"profile"`
	Composite float64 `json:"composite"`
}

func TestSignAndVerify(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true, SignatureValidity: time.Minute})
	require.NoError(t, err)

	signed, err := s.Sign(samplePayload{Profile: "balanced", Composite: 87.5})
	require.NoError(t, err)
	require.Contains(t, signed, "_signature")
	assert.Equal(t, "balanced", signed["profile"])

	assert.NoError(t, s.Verify(signed))
}

func TestVerify_AfterWireTransit(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true, SignatureValidity: time.Minute})
	require.NoError(t, err)

	signed, err := s.Sign(samplePayload{Profile: "conservative", Composite: 64.25})
	require.NoError(t, err)

	// A consumer sees the payload after JSON encoding and decoding, not the
	// map Sign returned. Verification must survive that round trip.
	wire, err := json.Marshal(signed)
	require.NoError(t, err)
	var received map[string]interface{}
	require.NoError(t, json.Unmarshal(wire, &received))

	assert.NoError(t, s.Verify(received))

	received["composite"] = 99.9
	assert.Error(t, s.Verify(received))
}

func TestVerify_DetectsTampering(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true, SignatureValidity: time.Minute})
	require.NoError(t, err)

	signed, err := s.Sign(samplePayload{Profile: "balanced", Composite: 87.5})
	require.NoError(t, err)

	signed["composite"] = 99.9
	assert.Error(t, s.Verify(signed))
}

func TestVerify_Expired(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true, SignatureValidity: -time.Minute})
	require.NoError(t, err)
	// Constructor replaces non-positive validity; force the expiry instead.
	s.opts.SignatureValidity = -time.Minute

	signed, err := s.Sign(samplePayload{Profile: "balanced"})
	require.NoError(t, err)

	err = s.Verify(signed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerify_MissingSignature(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true})
	require.NoError(t, err)

	err = s.Verify(map[string]interface{}{"profile": "balanced"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature metadata missing")
}

func TestSign_DisabledPassthrough(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: false})
	require.NoError(t, err)

	out, err := s.Sign(samplePayload{Profile: "balanced"})
	require.NoError(t, err)
	assert.NotContains(t, out, "_signature")
	assert.Equal(t, "balanced", out["profile"])
}

func TestAttestation(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true})
	require.NoError(t, err)

	att, err := s.Attestation(samplePayload{Profile: "balanced", Composite: 87.5})
	require.NoError(t, err)
	assert.Contains(t, att["keccak256Hash"], "0x")
	assert.Contains(t, att["signature"], "0x")
	assert.Contains(t, att["publicKey"], "0x")
}

func TestGetPublicKey(t *testing.T) {
	s, err := NewResponseSigner(SignerOptions{Enabled: true})
	require.NoError(t, err)
	assert.NotEmpty(t, s.GetPublicKey())
}
