package domain

import (
	"encoding/json"
	"strings"
)

// IndexDocument is the uniform searchable shape written to the search cluster.
// ID is stable across re-syncs of the same entity and is the upsert key.
type IndexDocument struct {
	// ID is the entity's stable identifier.
	ID string

	// Index is the target index name.
	Index string

	// Category is the result category the index belongs to.
	Category Category

	// Name is the display name.
	Name string

	// Image is an optional display image URL; empty means none.
	Image string

	// TextFields hold plain text for analysed fields.
	TextFields map[string]string

	// KeywordFields hold exact values for keyword-only fields.
	KeywordFields map[string][]string

	// SuggestFields hold completion inputs keyed by source field.
	SuggestFields map[string][]string

	// Aux carries auxiliary fields used only for ranking or display
	// (e.g. kind, url, isComment, scheduleMeetingCount).
	Aux map[string]any

	// Source echoes the original record.
	Source json.RawMessage
}

// Body renders the document as the flat source object stored in the index.
func (d IndexDocument) Body() map[string]any {
	body := map[string]any{
		"uid":      d.ID,
		"name":     d.Name,
		"category": string(d.Category),
	}
	if d.Image != "" {
		body["image"] = d.Image
	} else {
		body["image"] = nil
	}
	for k, v := range d.TextFields {
		if k == "name" {
			continue
		}
		body[k] = v
	}
	for k, v := range d.KeywordFields {
		body[k] = v
	}
	for k, v := range d.SuggestFields {
		body[SuggestField(k)] = v
	}
	for k, v := range d.Aux {
		body[k] = v
	}
	if len(d.Source) > 0 {
		body["source"] = d.Source
	}
	return body
}

// SuggestTokens builds completion inputs from a value: the full value
// plus each whitespace-delimited token, deduplicated in first-seen order.
// Empty input yields nil.
func SuggestTokens(full string) []string {
	full = strings.TrimSpace(full)
	if full == "" {
		return nil
	}
	seen := map[string]bool{full: true}
	out := []string{full}
	for _, tok := range strings.Fields(full) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// SuggestTokensAll merges SuggestTokens over several values.
func SuggestTokensAll(values ...string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, tok := range SuggestTokens(v) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
