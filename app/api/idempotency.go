package api

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const idempotencyBucket = 5 * time.Minute

type IdempotencyFields struct {
	Amount     int64
	Currency   string
	CustomerID string
	Reference  string
	Method     string
	Provider   string
	Credential string
	CallerKey  string
}

// IdempotencyKey derives the create-intent key. With a caller key the result
// is stable forever; without one it is stable within a five minute bucket.
func IdempotencyKey(f IdempotencyFields, now time.Time) string {
	fingerprint := encodeFields(
		strconv.FormatInt(f.Amount, 10),
		strings.ToUpper(strings.TrimSpace(f.Currency)),
		strings.TrimSpace(f.CustomerID),
		strings.TrimSpace(f.Reference),
		strings.ToLower(strings.TrimSpace(f.Method)),
		strings.ToLower(strings.TrimSpace(f.Provider)),
		strings.TrimSpace(f.Credential),
	)

	if key := strings.TrimSpace(f.CallerKey); key != "" {
		return digest(encodeFields("key", key, fingerprint))
	}
	return digest(encodeFields("bucket", strconv.FormatInt(bucketOf(now), 10), fingerprint))
}

func requestIdempotencyKey(method, path string, body []byte, now time.Time) string {
	return digest(encodeFields("req", strconv.FormatInt(bucketOf(now), 10), method, path, string(body)))
}

// encodeFields length-prefixes every value so no field content can shift
// into its neighbour.
func encodeFields(values ...string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func bucketOf(now time.Time) int64 {
	return now.UTC().Unix() / int64(idempotencyBucket/time.Second)
}

func digest(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return "chk_" + hex.EncodeToString(sum[:16])
}
