package billplz

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// 署名に使うキー（ソート済み）。x_signature自身は含めない
var signatureFields = []string{"amount", "collection_id", "id", "paid", "paid_at", "state"}

// 存在するキーだけ key+value を連結して HMAC-SHA256(hex)
func Sign(key string, payload map[string]string) string {
	var b strings.Builder
	for _, k := range signatureFields {
		if v, ok := payload[k]; ok {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// 不一致でもエラーにはしない
func VerifySignature(key string, payload map[string]string, signature string) bool {
	if key == "" || signature == "" {
		return false
	}
	expected := Sign(key, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
