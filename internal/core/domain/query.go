package domain

import (
	"fmt"
	"strings"
)

// Mode selects how free text is turned into a query.
type Mode string

const (
	// ModeLoose is a single recall-oriented multi-field match.
	ModeLoose Mode = "loose"
	// ModeStrict is a weighted precision-oriented boolean query.
	ModeStrict Mode = "strict"
)

// ParseMode validates a query mode. Empty input means loose.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeLoose:
		return ModeLoose, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("%w: query mode %q", ErrInvalidInput, s)
	}
}

// Query is a node of the typed query tree rendered by cluster adapters.
type Query interface {
	isQuery()
}

// MatchType selects the multi-field match variant.
type MatchType string

const (
	MatchBestFields   MatchType = "best_fields"
	MatchPhrase       MatchType = "phrase"
	MatchPhrasePrefix MatchType = "phrase_prefix"
)

// Operator combines the terms of a match.
type Operator string

const (
	OperatorOr  Operator = "or"
	OperatorAnd Operator = "and"
)

// MultiMatch matches analysed text against several fields.
type MultiMatch struct {
	Query         string
	Fields        []string
	Type          MatchType
	Operator      Operator
	MaxExpansions int
	Boost         float64
}

// Term matches an exact keyword value.
type Term struct {
	Field string
	Value string
	Boost float64
}

// Prefix matches keyword values starting with Value.
type Prefix struct {
	Field string
	Value string
	Boost float64
}

// Bool is a disjunction of clauses.
type Bool struct {
	Should             []Query
	MinimumShouldMatch int
}

func (MultiMatch) isQuery() {}
func (Term) isQuery()       {}
func (Prefix) isQuery()     {}
func (Bool) isQuery()       {}

// Strict mode clause weights.
const (
	BoostBestFields     = 1.2
	BoostPhrase         = 3.0
	BoostPhrasePrefix   = 3.0
	BoostKeywordExact   = 10.0
	BoostKeywordPrefix  = 4.0
	BoostKeywordOnlyPfx = 1.5

	// PhrasePrefixMaxExpansions bounds phrase-prefix term expansion.
	PhrasePrefixMaxExpansions = 50
)

// LooseQuery builds the recall-oriented query for a category.
func LooseQuery(spec CategorySpec, text string) Query {
	return MultiMatch{
		Query:  text,
		Fields: spec.TextFields(),
		Type:   MatchBestFields,
	}
}

// StrictQuery builds the precision-weighted query for a category.
// Phrase clauses only target text fields; keyword clauses target the
// keyword subfields of text fields and the keyword-only fields.
func StrictQuery(spec CategorySpec, text string) Query {
	text = strings.TrimSpace(text)
	textFields := spec.TextFields()
	keywordOnly := spec.KeywordOnlyFields()
	subfields := spec.KeywordSubfields()
	singleWord := len(strings.Fields(text)) == 1

	var should []Query
	if len(textFields) > 0 {
		should = append(should,
			MultiMatch{
				Query:    text,
				Fields:   textFields,
				Type:     MatchBestFields,
				Operator: OperatorAnd,
				Boost:    BoostBestFields,
			},
			MultiMatch{
				Query:  text,
				Fields: textFields,
				Type:   MatchPhrase,
				Boost:  BoostPhrase,
			},
			MultiMatch{
				Query:         text,
				Fields:        textFields,
				Type:          MatchPhrasePrefix,
				MaxExpansions: PhrasePrefixMaxExpansions,
				Boost:         BoostPhrasePrefix,
			},
		)
	}
	for _, f := range subfields {
		should = append(should, Term{Field: f, Value: text, Boost: BoostKeywordExact})
		if singleWord {
			should = append(should, Prefix{Field: f, Value: text, Boost: BoostKeywordPrefix})
		}
	}
	for _, f := range keywordOnly {
		should = append(should,
			Term{Field: f, Value: text, Boost: BoostKeywordExact},
			Prefix{Field: f, Value: text, Boost: BoostKeywordOnlyPfx},
		)
	}
	return Bool{Should: should, MinimumShouldMatch: 1}
}

// BuildQuery dispatches on mode.
func BuildQuery(mode Mode, spec CategorySpec, text string) Query {
	if mode == ModeStrict {
		return StrictQuery(spec, text)
	}
	return LooseQuery(spec, text)
}
