package elastic

import (
	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// lowercaseNormalizer makes keyword matching case-insensitive.
const lowercaseNormalizer = "lowercase_normalizer"

// keywordIgnoreAbove skips exact-value indexing of very long values.
const keywordIgnoreAbove = 256

type mappingProperty struct {
	Type        string                     `json:"type"`
	Normalizer  string                     `json:"normalizer,omitempty"`
	IgnoreAbove int                        `json:"ignore_above,omitempty"`
	Index       *bool                      `json:"index,omitempty"`
	Enabled     *bool                      `json:"enabled,omitempty"`
	Fields      map[string]mappingProperty `json:"fields,omitempty"`
}

type normalizerSettings struct {
	Type   string   `json:"type"`
	Filter []string `json:"filter"`
}

type createIndexSettings struct {
	Settings struct {
		Analysis struct {
			Normalizer map[string]normalizerSettings `json:"normalizer"`
		} `json:"analysis"`
	} `json:"settings"`
	Mappings struct {
		Properties map[string]mappingProperty `json:"properties"`
	} `json:"mappings"`
}

func keywordProperty() mappingProperty {
	return mappingProperty{
		Type:        "keyword",
		Normalizer:  lowercaseNormalizer,
		IgnoreAbove: keywordIgnoreAbove,
	}
}

// indexSettings builds the create-index body for a category: analysed
// text fields (with an optional ".keyword" subfield), keyword-only fields
// and one completion field per suggest field.
func indexSettings(spec domain.CategorySpec) createIndexSettings {
	var s createIndexSettings
	s.Settings.Analysis.Normalizer = map[string]normalizerSettings{
		lowercaseNormalizer: {Type: "custom", Filter: []string{"lowercase"}},
	}

	disabled := false
	props := map[string]mappingProperty{
		"uid":      {Type: "keyword"},
		"category": {Type: "keyword"},
		"image":    {Type: "keyword", Index: &disabled},
		"source":   {Type: "object", Enabled: &disabled},
	}
	for _, f := range spec.Fields {
		switch f.Kind {
		case domain.FieldText:
			p := mappingProperty{Type: "text"}
			if f.KeywordSubfield {
				p.Fields = map[string]mappingProperty{"keyword": keywordProperty()}
			}
			props[f.Name] = p
		case domain.FieldKeyword:
			props[f.Name] = keywordProperty()
		}
	}
	for _, f := range spec.SuggestFields {
		props[domain.SuggestField(f)] = mappingProperty{Type: "completion"}
	}
	s.Mappings.Properties = props
	return s
}
