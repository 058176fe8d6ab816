package chunker

import (
	"regexp"
	"strings"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

var departmentName = regexp.MustCompile(`Department of ([A-Z][a-z\s&]+(?:Engineering|Science|Management))`)

// DetectMetadata flags the topics a chunk talks about. The flags are shown to
// users and never influence ranking.
func DetectMetadata(text string) domain.ChunkMetadata {
	lower := strings.ToLower(text)
	has := func(needles ...string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}

	meta := domain.ChunkMetadata{
		HasEligibility:  has("eligibility", "admission", "requirement"),
		HasPrograms:     has("offered programs", "programs:"),
		HasFaculty:      has("faculty", "professor", "dean"),
		HasIntroduction: has("introduction:", "established"),
	}

	if m := departmentName.FindStringSubmatch(text); m != nil {
		meta.Department = strings.TrimSpace(m[1])
	}

	return meta
}
