package retriever

import "strings"

// expansion appends phrase when any trigger occurs in the query.
type expansion struct {
	triggers []string
	phrase   string
}

var defaultExpansions = []expansion{
	{triggers: []string{"admission", "requirement", "eligibility"}, phrase: "eligibility criteria admission requirements"},
	{triggers: []string{"faculty", "professor", "staff"}, phrase: "faculty members professors"},
	{triggers: []string{"program", "degree"}, phrase: "offered programs degrees"},
}

// QueryExpander widens short questions with the vocabulary the department
// document uses for the same topic.
type QueryExpander struct {
	expansions []expansion
}

func NewQueryExpander() *QueryExpander {
	return &QueryExpander{expansions: defaultExpansions}
}

// ExpandWithKeywords returns the query followed by every matching expansion
// phrase, or the query unchanged when nothing matches.
func (e *QueryExpander) ExpandWithKeywords(query string) string {
	lowerQuery := strings.ToLower(query)

	var extra []string
	for _, exp := range e.expansions {
		for _, trigger := range exp.triggers {
			if strings.Contains(lowerQuery, trigger) {
				extra = append(extra, exp.phrase)
				break
			}
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
