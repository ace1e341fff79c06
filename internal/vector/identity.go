// Package vector holds vector identity, the embedding orchestrator and the
// store backends (Qdrant over gRPC and an embedded in-process index).
package vector

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// DeriveID returns the deterministic base vector ID for a piece of content:
// the first 10 hex characters of the locator's MD5 digest joined with the
// content type. Re-ingesting the same locator always maps to the same ID,
// which makes upserts idempotent. Truncation collisions are accepted.
func DeriveID(locator, contentType string) string {
	sum := md5.Sum([]byte(locator))
	return hex.EncodeToString(sum[:])[:10] + "_" + contentType
}

// DeriveSubID appends a sub-identifier to a base ID, e.g. a frame number,
// chunk index, or facet name such as "caption" or "ocr".
func DeriveSubID(base string, sub any) string {
	return fmt.Sprintf("%s_%v", base, sub)
}

// PointUUID maps a logical vector ID onto a deterministic RFC 4122 UUID for
// backends that only index numeric or UUID point IDs. The logical ID stays in
// the payload so results can be traced back.
func PointUUID(id string) string {
	sum := md5.Sum([]byte(id))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3 (MD5 name-based)
	sum[8] = (sum[8] & 0x3f) | 0x80 // RFC 4122 variant
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32])
}
