package billplz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSignatureKey = "S-s7aTR8Ln6XiGY8KeqMCTnA"

func paidPayload() map[string]string {
	return map[string]string{
		"id":            "W_79pJDk",
		"collection_id": "inbmmepb",
		"paid":          "true",
		"state":         "paid",
		"amount":        "18000",
		"paid_at":       "2025-01-01 10:00:00 +0800",
		"reference_2":   "ORD-20250101-001",
	}
}

func TestSign_ReferenceValue(t *testing.T) {
	got := Sign(testSignatureKey, paidPayload())
	assert.Equal(t, "c585da30842031f40501e8e204f106da29557313b72cdc11412334f20f38d6fd", got)
}

func TestSign_IgnoresNonWhitelistedFields(t *testing.T) {
	p := paidPayload()
	base := Sign(testSignatureKey, p)

	p["reference_2"] = "ORD-OTHER"
	p["x_signature"] = "whatever"
	assert.Equal(t, base, Sign(testSignatureKey, p))
}

func TestVerifySignature(t *testing.T) {
	p := paidPayload()
	sig := Sign(testSignatureKey, p)

	assert.True(t, VerifySignature(testSignatureKey, p, sig))
	assert.True(t, VerifySignature(testSignatureKey, p, " "+sig+" "))
	assert.False(t, VerifySignature("other-key", p, sig))
	assert.False(t, VerifySignature(testSignatureKey, p, ""))
	assert.False(t, VerifySignature("", p, sig))
}

func TestVerifySignature_AnyByteMutationFails(t *testing.T) {
	p := paidPayload()
	sig := Sign(testSignatureKey, p)

	for _, k := range signatureFields {
		v := p[k]
		for i := 0; i < len(v); i++ {
			mutated := paidPayload()
			b := []byte(v)
			b[i] ^= 0x01
			mutated[k] = string(b)

			assert.False(t, VerifySignature(testSignatureKey, mutated, sig), "field=%s index=%d", k, i)
		}
	}
}
