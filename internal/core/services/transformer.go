package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// Markup formats of long-form source fields.
const (
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

// Transformer converts source records into index documents.
// Transform is pure: the same record always yields the same document.
type Transformer struct {
	indexPrefix string
	normalisers map[string]driven.Normaliser
}

// NewTransformer creates a transformer writing to indices with the given prefix.
// Fields in a format with no normaliser are only whitespace-trimmed.
func NewTransformer(indexPrefix string, normalisers ...driven.Normaliser) *Transformer {
	t := &Transformer{
		indexPrefix: indexPrefix,
		normalisers: make(map[string]driven.Normaliser, len(normalisers)),
	}
	for _, n := range normalisers {
		t.normalisers[n.Format()] = n
	}
	return t
}

// Transform converts one record.
// Returns domain.ErrInvalidTimestamp for forum records with no valid
// timestamp and domain.ErrInvalidInput for records with no id.
func (t *Transformer) Transform(rec domain.SourceRecord) (domain.IndexDocument, error) {
	if rec == nil || rec.Key() == "" {
		return domain.IndexDocument{}, fmt.Errorf("%w: record has no id", domain.ErrInvalidInput)
	}
	if _, ok := rec.ChangedAt(); !ok {
		return domain.IndexDocument{}, fmt.Errorf("%w: %s %s", domain.ErrInvalidTimestamp, rec.Entity(), rec.Key())
	}

	var doc domain.IndexDocument
	switch r := rec.(type) {
	case domain.Member:
		doc = t.member(r)
	case domain.Team:
		doc = t.team(r)
	case domain.Project:
		doc = t.project(r)
	case domain.Event:
		doc = t.event(r)
	case domain.ForumTopic:
		doc = t.topic(r)
	case domain.ForumPost:
		doc = t.post(r)
	default:
		return domain.IndexDocument{}, fmt.Errorf("%w: %T", domain.ErrUnsupportedType, rec)
	}

	doc.ID = rec.Key()
	doc.Category = rec.Entity().Category()
	doc.Index = domain.IndexName(t.indexPrefix, doc.Category)
	return doc, nil
}

func (t *Transformer) member(m domain.Member) domain.IndexDocument {
	return domain.IndexDocument{
		Name:  m.Name,
		Image: m.ImageURL,
		TextFields: map[string]string{
			"name": m.Name,
			"bio":  t.plain(formatHTML, m.Bio),
		},
		SuggestFields: map[string][]string{
			"name": domain.SuggestTokens(m.Name),
		},
		Aux: map[string]any{
			"kind":                 string(domain.EntityMember),
			"scheduleMeetingCount": m.ScheduleMeetingCount,
		},
		Source: echo(map[string]any{
			"uid":         m.UID,
			"name":        m.Name,
			"imageUrl":    m.ImageURL,
			"accessLevel": m.AccessLevel,
			"createdAt":   m.CreatedAt,
			"updatedAt":   m.UpdatedAt,
		}),
	}
}

func (t *Transformer) team(tm domain.Team) domain.IndexDocument {
	return domain.IndexDocument{
		Name:  tm.Name,
		Image: tm.LogoURL,
		TextFields: map[string]string{
			"name":             tm.Name,
			"shortDescription": t.plain(formatHTML, tm.ShortDescription),
			"longDescription":  t.plain(formatHTML, tm.LongDescription),
		},
		SuggestFields: map[string][]string{
			"name": domain.SuggestTokens(tm.Name),
		},
		Aux: map[string]any{"kind": string(domain.EntityTeam)},
		Source: echo(map[string]any{
			"uid":       tm.UID,
			"name":      tm.Name,
			"logoUrl":   tm.LogoURL,
			"createdAt": tm.CreatedAt,
			"updatedAt": tm.UpdatedAt,
		}),
	}
}

func (t *Transformer) project(p domain.Project) domain.IndexDocument {
	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return domain.IndexDocument{
		Name:  p.Name,
		Image: p.LogoURL,
		TextFields: map[string]string{
			"name":        p.Name,
			"tagline":     t.plain(formatHTML, p.Tagline),
			"description": t.plain(formatHTML, p.Description),
			"readMe":      t.plain(formatMarkdown, p.ReadMe),
		},
		KeywordFields: map[string][]string{
			"tags": tags,
		},
		SuggestFields: map[string][]string{
			"name": domain.SuggestTokens(p.Name),
			"tags": domain.SuggestTokensAll(tags...),
		},
		Aux: map[string]any{"kind": string(domain.EntityProject)},
		Source: echo(map[string]any{
			"uid":       p.UID,
			"name":      p.Name,
			"tags":      tags,
			"logoUrl":   p.LogoURL,
			"createdAt": p.CreatedAt,
			"updatedAt": p.UpdatedAt,
		}),
	}
}

func (t *Transformer) event(e domain.Event) domain.IndexDocument {
	return domain.IndexDocument{
		Name:  e.Name,
		Image: e.LogoURL,
		TextFields: map[string]string{
			"name":             e.Name,
			"shortDescription": t.plain(formatHTML, e.ShortDescription),
			"description":      t.plain(formatHTML, e.Description),
			"additionalInfo":   t.plain(formatHTML, e.AdditionalInfo),
			"location":         e.LocationText,
		},
		SuggestFields: map[string][]string{
			"name":     domain.SuggestTokens(e.Name),
			"location": domain.SuggestTokens(e.LocationText),
		},
		Aux: map[string]any{"kind": string(domain.EntityEvent)},
		Source: echo(map[string]any{
			"uid":       e.UID,
			"name":      e.Name,
			"location":  e.LocationText,
			"logoUrl":   e.LogoURL,
			"createdAt": e.CreatedAt,
			"updatedAt": e.UpdatedAt,
		}),
	}
}

func (t *Transformer) topic(tp domain.ForumTopic) domain.IndexDocument {
	name := domain.TopicDisplayName(tp.Title, tp.Name)
	changed, _ := tp.ChangedAt()
	return domain.IndexDocument{
		Name: name,
		TextFields: map[string]string{
			"name": name,
		},
		KeywordFields: map[string][]string{
			"slug": {tp.Slug},
		},
		SuggestFields: map[string][]string{
			"name": domain.SuggestTokens(name),
		},
		Aux: map[string]any{
			"kind":       string(domain.EntityForumTopic),
			"title":      tp.Title,
			"url":        domain.TopicURL(tp.Slug),
			"topicId":    tp.TID,
			"categoryId": tp.CategoryID,
			"postCount":  tp.PostCount,
			"tsDate":     changed.UnixMilli(),
		},
		Source: echo(map[string]any{
			"tid":          tp.TID,
			"title":        tp.Title,
			"slug":         tp.Slug,
			"cid":          tp.CategoryID,
			"timestamp":    tp.CreatedAt,
			"lastposttime": tp.LastPostAt,
		}),
	}
}

func (t *Transformer) post(p domain.ForumPost) domain.IndexDocument {
	content := t.plain(formatHTML, p.ContentHTML)
	name := domain.PostDisplayName(p.Name, p.TopicTitle, content)
	changed, _ := p.ChangedAt()
	kind := "post"
	if p.IsComment {
		kind = "comment"
	}
	return domain.IndexDocument{
		Name: name,
		TextFields: map[string]string{
			"name":       name,
			"content":    content,
			"topicTitle": p.TopicTitle,
		},
		SuggestFields: map[string][]string{
			"topicTitle": domain.SuggestTokens(p.TopicTitle),
		},
		Aux: map[string]any{
			"kind":       kind,
			"postName":   p.Name,
			"isComment":  p.IsComment,
			"url":        domain.PostURL(p.TopicSlug, p.PID),
			"topicId":    p.TopicID,
			"authorId":   p.AuthorID,
			"categoryId": p.TopicCategoryID,
			"tsDate":     changed.UnixMilli(),
		},
		Source: echo(map[string]any{
			"pid":       p.PID,
			"tid":       p.TopicID,
			"uid":       p.AuthorID,
			"timestamp": p.CreatedAt,
			"edited":    p.EditedAt,
		}),
	}
}

// plain converts a markup field to plain text.
func (t *Transformer) plain(format, content string) string {
	if n, ok := t.normalisers[format]; ok {
		return n.Normalise(content)
	}
	return strings.TrimSpace(content)
}

// echo renders the source record echo. Map keys marshal in sorted order,
// so the output is deterministic.
func echo(fields map[string]any) json.RawMessage {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return data
}
