package elastic

import (
	"fmt"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// renderQuery converts the typed query tree into the Elasticsearch DSL.
func renderQuery(q domain.Query) (map[string]any, error) {
	switch q := q.(type) {
	case domain.MultiMatch:
		mm := map[string]any{
			"query":  q.Query,
			"fields": q.Fields,
		}
		if q.Type != "" {
			mm["type"] = string(q.Type)
		}
		if q.Operator != "" {
			mm["operator"] = string(q.Operator)
		}
		if q.MaxExpansions > 0 {
			mm["max_expansions"] = q.MaxExpansions
		}
		if q.Boost > 0 {
			mm["boost"] = q.Boost
		}
		return map[string]any{"multi_match": mm}, nil

	case domain.Term:
		return map[string]any{"term": map[string]any{q.Field: termBody(q.Value, q.Boost)}}, nil

	case domain.Prefix:
		return map[string]any{"prefix": map[string]any{q.Field: termBody(q.Value, q.Boost)}}, nil

	case domain.Bool:
		should := make([]map[string]any, 0, len(q.Should))
		for _, c := range q.Should {
			r, err := renderQuery(c)
			if err != nil {
				return nil, err
			}
			should = append(should, r)
		}
		b := map[string]any{"should": should}
		if q.MinimumShouldMatch > 0 {
			b["minimum_should_match"] = q.MinimumShouldMatch
		}
		return map[string]any{"bool": b}, nil
	}
	return nil, fmt.Errorf("%w: query node %T", domain.ErrUnsupportedType, q)
}

func termBody(value string, boost float64) map[string]any {
	body := map[string]any{
		"value":            value,
		"case_insensitive": true,
	}
	if boost > 0 {
		body["boost"] = boost
	}
	return body
}

// searchBody builds the request body for a search.
func searchBody(query map[string]any, size, from int, highlightFields []string) map[string]any {
	body := map[string]any{
		"query": query,
		"size":  size,
	}
	if from > 0 {
		body["from"] = from
	}
	if len(highlightFields) > 0 {
		fields := make(map[string]any, len(highlightFields))
		for _, f := range highlightFields {
			fields[f] = map[string]any{}
		}
		body["highlight"] = map[string]any{"fields": fields}
	}
	return body
}

// suggestName labels the single suggester in a suggest request.
const suggestName = "completion"

// suggestBody builds a completion-suggest request body.
func suggestBody(field, prefix string, size int) map[string]any {
	return map[string]any{
		"_source": false,
		"suggest": map[string]any{
			suggestName: map[string]any{
				"prefix": prefix,
				"completion": map[string]any{
					"field":           field,
					"size":            size,
					"skip_duplicates": true,
				},
			},
		},
	}
}
