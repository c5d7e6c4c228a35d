package datapack

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/briefkit/econdata/backend/internal/contracts"
)

// hashPack computes the pack content hash: SHA-256 over a canonical JSON
// serialization of {topic, series} with map keys sorted. Provenance is
// stripped from the hashed subset so pulled_at never perturbs the hash.
func hashPack(topic string, series []contracts.SeriesPayload) (string, error) {
	raw, err := json.Marshal(series)
	if err != nil {
		return "", fmt.Errorf("marshal series payloads: %w", err)
	}

	// Round-trip through generic maps: encoding/json emits map keys in
	// sorted order, which gives the canonical form.
	decoded := make([]map[string]interface{}, 0, len(series))
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode series payloads: %w", err)
	}
	for _, payload := range decoded {
		delete(payload, "provenance")
	}

	canonical, err := json.Marshal(map[string]interface{}{
		"topic":  topic,
		"series": decoded,
	})
	if err != nil {
		return "", fmt.Errorf("marshal canonical payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
