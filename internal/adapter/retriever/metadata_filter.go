package retriever

import (
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// topicRule restricts candidates to chunks flagged with a topic when the
// query mentions one of its triggers.
type topicRule struct {
	topic    string
	triggers []string
	has      func(domain.ChunkMetadata) bool
}

// Rules are tried in order; the first match wins.
var defaultTopicRules = []topicRule{
	{
		topic:    "eligibility",
		triggers: []string{"admission", "requirement", "eligibility", "criteria"},
		has:      func(m domain.ChunkMetadata) bool { return m.HasEligibility },
	},
	{
		topic:    "faculty",
		triggers: []string{"faculty", "professor", "staff", "dean", "chairman"},
		has:      func(m domain.ChunkMetadata) bool { return m.HasFaculty },
	},
	{
		topic:    "programs",
		triggers: []string{"program", "degree", "offered"},
		has:      func(m domain.ChunkMetadata) bool { return m.HasPrograms },
	},
}

// MetadataFilter narrows retrieval to chunks whose topic flags match the
// intent of the question.
type MetadataFilter struct {
	rules []topicRule
}

func NewMetadataFilter() *MetadataFilter {
	return &MetadataFilter{rules: defaultTopicRules}
}

// ForQuery returns the topic the query asks about and a predicate keeping the
// chunks flagged with it. Both are zero when no rule matches.
func (f *MetadataFilter) ForQuery(query string) (string, func(domain.Chunk) bool) {
	lowerQuery := strings.ToLower(query)
	for _, rule := range f.rules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lowerQuery, trigger) {
				has := rule.has
				return rule.topic, func(c domain.Chunk) bool { return has(c.Metadata) }
			}
		}
	}
	return "", nil
}
