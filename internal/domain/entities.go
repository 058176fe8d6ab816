package domain

import (
	"strings"
	"time"
)

// Chunk is a window of source-document words, the unit of retrieval.
// Chunks are created once while indexing and never modified.
type Chunk struct {
	ID               int           `json:"id"`
	Text             string        `json:"text"`
	StartWordOffset  int           `json:"start_word_offset"`
	SourceDocumentID string        `json:"source_document_id"`
	Metadata         ChunkMetadata `json:"metadata"`
}

// ChunkMetadata holds topic flags detected from the chunk text.
type ChunkMetadata struct {
	HasEligibility  bool   `json:"has_eligibility,omitempty"`
	HasPrograms     bool   `json:"has_programs,omitempty"`
	HasFaculty      bool   `json:"has_faculty,omitempty"`
	HasIntroduction bool   `json:"has_introduction,omitempty"`
	Department      string `json:"department,omitempty"`
}

// Topics lists the set flags by name.
func (m ChunkMetadata) Topics() []string {
	var topics []string
	if m.HasEligibility {
		topics = append(topics, "eligibility")
	}
	if m.HasPrograms {
		topics = append(topics, "programs")
	}
	if m.HasFaculty {
		topics = append(topics, "faculty")
	}
	if m.HasIntroduction {
		topics = append(topics, "introduction")
	}
	return topics
}

type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// IndexInfo describes one index build. It is persisted next to the entries
// and checked against the configured embedder on load.
type IndexInfo struct {
	SchemaVersion    int       `json:"schema_version"`
	ModelVersion     string    `json:"model_version"`
	Dimension        int       `json:"dimension"`
	BuiltAt          time.Time `json:"built_at"`
	ConfigHash       string    `json:"config_hash"`
	DocumentID       string    `json:"document_id"`
	DocumentChecksum string    `json:"document_checksum"`
	ChunkCount       int       `json:"chunk_count"`
}

type IndexSnapshot struct {
	Info    IndexInfo
	Entries []IndexEntry
}

// Query is a question as received plus its normalized form.
type Query struct {
	RawText        string
	NormalizedText string

	// Vector caches the embedding of NormalizedText for the lifetime of one request.
	Vector []float32
}

// NewQuery trims, case-folds and collapses whitespace.
func NewQuery(raw string) Query {
	return Query{
		RawText:        raw,
		NormalizedText: Normalize(raw),
	}
}

func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func (q Query) IsEmpty() bool {
	return q.NormalizedText == ""
}

type ScopeDecision struct {
	Accepted        bool     `json:"accepted"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Similarity      float64  `json:"similarity,omitempty"`
	Degraded        bool     `json:"degraded,omitempty"`

	// Vector is the query embedding computed by the semantic check, if any.
	Vector []float32 `json:"-"`
}

// Scope decision reasons.
const (
	ReasonEmptyQuery    = "empty_query"
	ReasonKeywordMatch  = "keyword_match"
	ReasonSemanticMatch = "semantic_match"
	ReasonOutOfScope    = "out_of_scope"
)

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievalResult is ordered by descending score.
type RetrievalResult []ScoredChunk

func (r RetrievalResult) IDs() []int {
	ids := make([]int, len(r))
	for i, sc := range r {
		ids[i] = sc.Chunk.ID
	}
	return ids
}

type Answer struct {
	Text      string `json:"text"`
	Citations []int  `json:"citations"`
	Grounded  bool   `json:"grounded"`
}

type Outcome string

const (
	OutcomeAnswered            Outcome = "answered"
	OutcomeScopeRejected       Outcome = "scope_rejected"
	OutcomeInsufficientContext Outcome = "insufficient_context"
	OutcomeUnavailable         Outcome = "unavailable"
)

// Source is a retrieved chunk as shown to callers.
type Source struct {
	ChunkID int     `json:"chunk_id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Response is the caller-facing result of answering one question.
type Response struct {
	Question  string   `json:"question"`
	Accepted  bool     `json:"accepted"`
	Reason    string   `json:"reason,omitempty"`
	Answer    string   `json:"answer"`
	Citations []int    `json:"citations"`
	Grounded  bool     `json:"grounded"`
	Outcome   Outcome  `json:"outcome"`
	Sources   []Source `json:"sources,omitempty"`
}

// Stats summarizes the loaded index.
type Stats struct {
	Loaded       bool      `json:"loaded"`
	Chunks       int       `json:"chunks"`
	Dimension    int       `json:"dimension"`
	ModelVersion string    `json:"model_version"`
	BuiltAt      time.Time `json:"built_at"`
	DocumentID   string    `json:"document_id"`
	Generation   uint64    `json:"generation"`
}

// PackedContext is the chunk text handed to the generator.
type PackedContext struct {
	Text      string `json:"text"`
	ChunkIDs  []int  `json:"chunk_ids"` // ids actually included, in score order
	Words     int    `json:"words"`
	Truncated bool   `json:"truncated"`
}
