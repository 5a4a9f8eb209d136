package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// DigestHex returns the SHA-256 digest as lowercase hex.
func DigestHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestWithPrefix returns the SHA-256 digest with the "sha256:" prefix.
func DigestWithPrefix(data []byte) string {
	return "sha256:" + DigestHex(data)
}

// CanonicalizeJSON canonicalizes any JSON-marshalable value, including
// structs, by round-tripping it through encoding/json first.
func CanonicalizeJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return Canonicalize(generic)
}

// CanonicalDigest returns the prefixed digest of v's canonical JSON.
func CanonicalDigest(v any) (string, []byte, error) {
	canonical, err := CanonicalizeJSON(v)
	if err != nil {
		return "", nil, err
	}
	return DigestWithPrefix(canonical), canonical, nil
}
