package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sentinelmux/sentinelmux/pkg/types"
)

// KeyGenerator fingerprints requests with SHA-256 over the normalized
// message sequence and the generation parameters that affect output.
type KeyGenerator struct {
	// Prefix is prepended to all generated keys.
	Prefix string
}

// NewKeyGenerator creates a KeyGenerator with optional prefix.
func NewKeyGenerator(prefix string) *KeyGenerator {
	return &KeyGenerator{Prefix: prefix}
}

// Generate creates the request fingerprint. The key format is
// [prefix:]sha256(canonical request). Identical requests always produce the
// same key; any change to a message or a generation parameter changes it.
func (g *KeyGenerator) Generate(req *types.ChatRequest) string {
	var sb strings.Builder

	for _, m := range req.Messages {
		// Length-prefix each field so message boundaries cannot be forged
		// by crafted content.
		fmt.Fprintf(&sb, "%d:%s|%d:%s|", len(m.Role), m.Role, len(m.Content), m.Content)
	}

	if req.Temperature != nil {
		fmt.Fprintf(&sb, "temp:%.4f|", *req.Temperature)
	}
	if req.MaxTokens > 0 {
		fmt.Fprintf(&sb, "max_tokens:%d|", req.MaxTokens)
	}
	if req.TopP != nil {
		fmt.Fprintf(&sb, "top_p:%.4f|", *req.TopP)
	}

	hash := sha256.Sum256([]byte(sb.String()))
	hashHex := hex.EncodeToString(hash[:])

	if g.Prefix != "" {
		return g.Prefix + ":" + hashHex
	}
	return hashHex
}

// Cacheable reports whether the request qualifies for caching: creative
// (high-temperature) output must not be replayed as if deterministic, so
// only requests at or below the determinism threshold are cached.
func Cacheable(req *types.ChatRequest, determinismThreshold float64) bool {
	if req.Temperature == nil {
		// Providers default temperature well above the deterministic range.
		return false
	}
	return *req.Temperature <= determinismThreshold
}
