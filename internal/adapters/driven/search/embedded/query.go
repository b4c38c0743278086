package embedded

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// translate converts the typed query tree into a bleve query.
//
// Multi-field matches become a disjunction of per-field clauses. Phrase
// prefix is approximated by the leading phrase plus a prefix on the last
// term. Keyword values are lowercased to match the keyword analyzer.
func translate(q domain.Query) (query.Query, error) {
	switch q := q.(type) {
	case domain.MultiMatch:
		return multiMatch(q), nil

	case domain.Term:
		tq := bleve.NewTermQuery(strings.ToLower(q.Value))
		tq.SetField(q.Field)
		setBoost(tq, q.Boost)
		return tq, nil

	case domain.Prefix:
		pq := bleve.NewPrefixQuery(strings.ToLower(q.Value))
		pq.SetField(q.Field)
		setBoost(pq, q.Boost)
		return pq, nil

	case domain.Bool:
		clauses := make([]query.Query, 0, len(q.Should))
		for _, c := range q.Should {
			t, err := translate(c)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, t)
		}
		dq := bleve.NewDisjunctionQuery(clauses...)
		if q.MinimumShouldMatch > 0 {
			dq.SetMin(float64(q.MinimumShouldMatch))
		}
		return dq, nil
	}
	return nil, fmt.Errorf("%w: query node %T", domain.ErrUnsupportedType, q)
}

type boostable interface {
	SetBoost(b float64)
}

func setBoost(q boostable, boost float64) {
	if boost > 0 {
		q.SetBoost(boost)
	}
}

func multiMatch(q domain.MultiMatch) query.Query {
	if len(q.Fields) == 0 || strings.TrimSpace(q.Query) == "" {
		return bleve.NewMatchNoneQuery()
	}

	clauses := make([]query.Query, 0, len(q.Fields))
	for _, field := range q.Fields {
		switch q.Type {
		case domain.MatchPhrase:
			pq := bleve.NewMatchPhraseQuery(q.Query)
			pq.SetField(field)
			clauses = append(clauses, pq)
		case domain.MatchPhrasePrefix:
			clauses = append(clauses, phrasePrefix(field, q.Query))
		default:
			mq := bleve.NewMatchQuery(q.Query)
			mq.SetField(field)
			if q.Operator == domain.OperatorAnd {
				mq.SetOperator(query.MatchQueryOperatorAnd)
			}
			clauses = append(clauses, mq)
		}
	}

	dq := bleve.NewDisjunctionQuery(clauses...)
	setBoost(dq, q.Boost)
	return dq
}

func phrasePrefix(field, text string) query.Query {
	words := strings.Fields(text)
	last := bleve.NewPrefixQuery(strings.ToLower(words[len(words)-1]))
	last.SetField(field)
	if len(words) == 1 {
		return last
	}
	lead := bleve.NewMatchPhraseQuery(strings.Join(words[:len(words)-1], " "))
	lead.SetField(field)
	return bleve.NewConjunctionQuery(lead, last)
}
