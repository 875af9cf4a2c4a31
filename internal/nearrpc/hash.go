package nearrpc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalHash computes a content hash of a JSON document that is stable
// regardless of key order. Naive stringification is order-sensitive, so the
// document is decoded and re-encoded first: encoding/json writes map keys in
// sorted order, which gives a canonical form for objects at every depth.
func CanonicalHash(body []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("cannot canonicalize request body: %w", err)
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("cannot re-encode request body: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
