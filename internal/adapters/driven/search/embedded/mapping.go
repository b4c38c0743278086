package embedded

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	bleveCustom "github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	bleveStandard "github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveSingle "github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// keywordAnalyzer indexes a whole value as one lowercased term.
const keywordAnalyzer = "keyword_lower"

func textMapping(analyzer string, store bool) *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = analyzer
	fm.Store = store
	fm.IncludeTermVectors = true
	fm.IncludeInAll = false
	return fm
}

// indexMapping mirrors the cluster mapping of a category: analysed text
// fields with an optional "<name>.keyword" term field, keyword-only fields
// and stored completion fields. Other properties are not indexed.
func indexMapping(spec domain.CategorySpec) (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(keywordAnalyzer, map[string]interface{}{
		"type":      bleveCustom.Name,
		"tokenizer": bleveSingle.Name,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error adding bleve analyzer: %w", err)
	}

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	for _, f := range spec.Fields {
		switch f.Kind {
		case domain.FieldText:
			fms := []*mapping.FieldMapping{textMapping(bleveStandard.Name, true)}
			if f.KeywordSubfield {
				kw := textMapping(keywordAnalyzer, false)
				kw.Name = f.Name + domain.KeywordSuffix
				fms = append(fms, kw)
			}
			doc.AddFieldMappingsAt(f.Name, fms...)
		case domain.FieldKeyword:
			doc.AddFieldMappingsAt(f.Name, textMapping(keywordAnalyzer, true))
		}
	}
	for _, f := range spec.SuggestFields {
		doc.AddFieldMappingsAt(domain.SuggestField(f), textMapping(keywordAnalyzer, true))
	}

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true
	stored.IncludeTermVectors = false
	stored.IncludeInAll = false
	doc.AddFieldMappingsAt(sourceField, stored)

	im.DefaultMapping = doc
	im.DefaultAnalyzer = bleveStandard.Name
	return im, nil
}
