package domain

import (
	"fmt"
	"strings"
)

// Category is one of the six fixed result categories.
type Category string

const (
	CategoryEvents      Category = "events"
	CategoryProjects    Category = "projects"
	CategoryTeams       Category = "teams"
	CategoryMembers     Category = "members"
	CategoryForumTopics Category = "forumTopics"
	CategoryForumPosts  Category = "forumPosts"
)

// Categories returns every category in result order.
func Categories() []Category {
	return []Category{
		CategoryEvents,
		CategoryProjects,
		CategoryTeams,
		CategoryMembers,
		CategoryForumTopics,
		CategoryForumPosts,
	}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: category %q", ErrUnsupportedType, s)
}

// ParseCategories validates a list of category names.
func ParseCategories(names []string) ([]Category, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Category, 0, len(names))
	for _, n := range names {
		c, err := ParseCategory(strings.TrimSpace(n))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// baseIndexNames maps each category to its unprefixed index name.
var baseIndexNames = map[Category]string{
	CategoryEvents:      "events",
	CategoryProjects:    "projects",
	CategoryTeams:       "teams",
	CategoryMembers:     "members",
	CategoryForumTopics: "forum_topics",
	CategoryForumPosts:  "forum_posts",
}

// IndexName returns the index a category is stored in.
func IndexName(prefix string, c Category) string {
	return prefix + baseIndexNames[c]
}

// FieldKind says how a field is analysed by the cluster.
type FieldKind int

const (
	// FieldText is analysed full text.
	FieldText FieldKind = iota
	// FieldKeyword is an exact-value field; phrase queries are invalid on it.
	FieldKeyword
)

// KeywordSuffix names the exact-value subfield of a text field.
const KeywordSuffix = ".keyword"

// SuggestSuffix names the completion field built from a source field.
const SuggestSuffix = "_suggest"

// FieldSpec describes one queried field of a category.
type FieldSpec struct {
	Name string
	Kind FieldKind

	// KeywordSubfield adds an exact-value "<name>.keyword" subfield to a text field.
	KeywordSubfield bool
}

// CategorySpec is the static schema of a category's index.
type CategorySpec struct {
	Category Category
	Index    string
	Fields   []FieldSpec

	// SuggestFields are the source fields that get a completion field.
	SuggestFields []string

	// ExcerptFields are truncated in autocomplete results.
	ExcerptFields []string
}

// TextFields returns the analysed fields.
func (s CategorySpec) TextFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == FieldText {
			out = append(out, f.Name)
		}
	}
	return out
}

// KeywordOnlyFields returns the exact-value fields with no text analysis.
func (s CategorySpec) KeywordOnlyFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == FieldKeyword {
			out = append(out, f.Name)
		}
	}
	return out
}

// KeywordSubfields returns the "<name>.keyword" subfields of text fields.
func (s CategorySpec) KeywordSubfields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Kind == FieldText && f.KeywordSubfield {
			out = append(out, f.Name+KeywordSuffix)
		}
	}
	return out
}

// SuggestField returns the completion field name for a source field.
func SuggestField(field string) string {
	return field + SuggestSuffix
}

// categorySpecs is the registry, without index prefix applied.
var categorySpecs = []CategorySpec{
	{
		Category: CategoryEvents,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "shortDescription", Kind: FieldText},
			{Name: "description", Kind: FieldText},
			{Name: "additionalInfo", Kind: FieldText},
			{Name: "location", Kind: FieldText, KeywordSubfield: true},
		},
		SuggestFields: []string{"name", "location"},
		ExcerptFields: []string{"shortDescription", "description"},
	},
	{
		Category: CategoryProjects,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "tagline", Kind: FieldText},
			{Name: "description", Kind: FieldText},
			{Name: "readMe", Kind: FieldText},
			{Name: "tags", Kind: FieldKeyword},
		},
		SuggestFields: []string{"name", "tags"},
		ExcerptFields: []string{"tagline", "description"},
	},
	{
		Category: CategoryTeams,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "shortDescription", Kind: FieldText},
			{Name: "longDescription", Kind: FieldText},
		},
		SuggestFields: []string{"name"},
		ExcerptFields: []string{"shortDescription", "longDescription"},
	},
	{
		Category: CategoryMembers,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "bio", Kind: FieldText},
		},
		SuggestFields: []string{"name"},
		ExcerptFields: []string{"bio"},
	},
	{
		Category: CategoryForumTopics,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "slug", Kind: FieldKeyword},
		},
		SuggestFields: []string{"name"},
	},
	{
		Category: CategoryForumPosts,
		Fields: []FieldSpec{
			{Name: "name", Kind: FieldText, KeywordSubfield: true},
			{Name: "content", Kind: FieldText},
			{Name: "topicTitle", Kind: FieldText, KeywordSubfield: true},
		},
		SuggestFields: []string{"topicTitle"},
		ExcerptFields: []string{"content"},
	},
}

// CategorySpecs returns the registry with the index prefix applied,
// in the order of Categories.
func CategorySpecs(prefix string) []CategorySpec {
	out := make([]CategorySpec, len(categorySpecs))
	for i, s := range categorySpecs {
		s.Index = IndexName(prefix, s.Category)
		s.Fields = append([]FieldSpec(nil), s.Fields...)
		s.SuggestFields = append([]string(nil), s.SuggestFields...)
		s.ExcerptFields = append([]string(nil), s.ExcerptFields...)
		out[i] = s
	}
	return out
}

// LookupCategorySpec returns the spec for one category.
func LookupCategorySpec(prefix string, c Category) (CategorySpec, bool) {
	for _, s := range CategorySpecs(prefix) {
		if s.Category == c {
			return s, true
		}
	}
	return CategorySpec{}, false
}
