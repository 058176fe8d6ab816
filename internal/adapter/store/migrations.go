package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/config"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/port"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ComputeConfigHash computes a hash of the configuration that shapes the
// chunks. Changes to this hash mean the index is stale, not unusable.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		Document     string `json:"document"`
		Clean        bool   `json:"clean"`
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
	}{
		Document:     cfg.Document.Path,
		Clean:        cfg.Document.Clean,
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// Compatibility describes whether a persisted index can be served.
type Compatibility struct {
	Stale  bool
	Reason string
}

// CheckCompatibility verifies that an index was built with the configured
// embedding model. Serving vectors from another model would return
// meaningless neighbours, so a mismatch is fatal until the index is rebuilt.
func CheckCompatibility(info domain.IndexInfo, embedder port.Embedder, cfgHash string) (*Compatibility, error) {
	if info.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: index written by a newer version (schema v%d > v%d)",
			domain.ErrIndexModelMismatch, info.SchemaVersion, CurrentSchemaVersion)
	}

	if info.ModelVersion != embedder.ModelVersion() {
		return nil, fmt.Errorf("%w: index built with %q, configured embedder is %q; rebuild with `deptqa index`",
			domain.ErrIndexModelMismatch, info.ModelVersion, embedder.ModelVersion())
	}

	if dim := embedder.Dimension(); dim > 0 && dim != info.Dimension {
		return nil, fmt.Errorf("%w: index dimension %d, embedder dimension %d",
			domain.ErrIndexModelMismatch, info.Dimension, dim)
	}

	result := &Compatibility{}
	if info.ConfigHash != "" && info.ConfigHash != cfgHash {
		result.Stale = true
		result.Reason = "index configuration changed"
	}
	return result, nil
}
