package separator

import "regexp"

// Fixed role and label mapping. The agent role maps to SPEAKER_01, the
// customer role to SPEAKER_02.
const (
	RoleSales    = "sales_person"
	RoleCustomer = "customer"

	LabelSales    = "SPEAKER_01"
	LabelCustomer = "SPEAKER_02"
)

// Lexical pattern sets evaluated against lower-cased segment text at
// candidate turn boundaries. Patterns only trigger a switch at a silence
// boundary; they never override a non-boundary segment.
var (
	salesGreetingPatterns = compileAll(
		`\b(hello|hi|good morning|good afternoon)\b`,
		`\b(this is|my name is|calling from)\b`,
	)
	salesQuestionPatterns = compileAll(
		`\?$`,
		`\b(are you|do you|would you|can you)\b`,
		`\b(what|when|where|why|how)\b`,
	)
	salesOfferPatterns = compileAll(
		`\b(offer|deal|discount|promotion)\b`,
		`\b(credit card|benefits|rewards)\b`,
	)
	salesAgreementPatterns = compileAll(
		`\b(okay|ok|yes|sure|alright)\b`,
	)

	customerPricePatterns = compileAll(
		`\b(how much|what's the|cost|price)\b`,
	)
	customerHesitationPatterns = compileAll(
		`\b(i don't know|not sure|maybe)\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
