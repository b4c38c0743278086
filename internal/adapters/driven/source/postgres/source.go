// Package postgres reads members, teams, projects and events from the
// directory's PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.RelationalSource = (*Source)(nil)

// Source is a read-only relational source backed by PostgreSQL.
type Source struct {
	db *sql.DB
}

// Open connects to PostgreSQL using a lib/pq DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*Source, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: postgres: %w", domain.ErrSourceUnavailable, err)
	}
	return &Source{db: db}, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Source {
	return &Source{db: db}
}

// Close closes the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

const memberChangedQuery = `
SELECT m."uid", m."name", COALESCE(m."bio", ''), COALESCE(i."url", ''),
       COALESCE(m."accessLevel", ''), COALESCE(m."scheduleMeetingCount", 0),
       m."createdAt", m."updatedAt"
FROM "Member" m
LEFT JOIN "Image" i ON i."uid" = m."imageUid"
WHERE (m."createdAt" > $1 OR m."updatedAt" > $1)
  AND NOT (COALESCE(m."accessLevel", '') = ANY($2))
ORDER BY m."updatedAt"`

const teamChangedQuery = `
SELECT t."uid", t."name", COALESCE(t."shortDescription", ''), COALESCE(t."longDescription", ''),
       COALESCE(i."url", ''), t."createdAt", t."updatedAt"
FROM "Team" t
LEFT JOIN "Image" i ON i."uid" = t."logoUid"
WHERE (t."createdAt" > $1 OR t."updatedAt" > $1)
ORDER BY t."updatedAt"`

const projectChangedQuery = `
SELECT p."uid", p."name", COALESCE(p."tagline", ''), COALESCE(p."description", ''),
       COALESCE(p."readMe", ''), COALESCE(p."tags", '{}'), COALESCE(i."url", ''),
       p."createdAt", p."updatedAt"
FROM "Project" p
LEFT JOIN "Image" i ON i."uid" = p."logoUid"
WHERE (p."createdAt" > $1 OR p."updatedAt" > $1)
  AND p."isDeleted" = false
ORDER BY p."updatedAt"`

const eventChangedQuery = `
SELECT e."uid", e."name", COALESCE(e."description", ''), COALESCE(e."shortDescription", ''),
       COALESCE(e."additionalInfo", ''), COALESCE(l."location", ''), COALESCE(i."url", ''),
       e."createdAt", e."updatedAt"
FROM "PLEvent" e
LEFT JOIN "PLEventLocation" l ON l."uid" = e."locationUid"
LEFT JOIN "Image" i ON i."uid" = e."logoUid"
WHERE (e."createdAt" > $1 OR e."updatedAt" > $1)
ORDER BY e."updatedAt"`

const (
	memberIneligibleQuery  = `SELECT "uid" FROM "Member" WHERE "accessLevel" = ANY($1)`
	projectIneligibleQuery = `SELECT "uid" FROM "Project" WHERE "isDeleted" = true`
)

// Changed returns eligible rows of one entity type created or updated
// after since.
func (s *Source) Changed(
	ctx context.Context, entity domain.EntityType, since time.Time,
) ([]domain.SourceRecord, error) {
	switch entity {
	case domain.EntityMember:
		return s.members(ctx, since)
	case domain.EntityTeam:
		return s.teams(ctx, since)
	case domain.EntityProject:
		return s.projects(ctx, since)
	case domain.EntityEvent:
		return s.events(ctx, since)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, entity)
	}
}

// IneligibleIDs returns the ids of every row of the entity type that must
// not be in the index. Teams and events have no eligibility rule.
func (s *Source) IneligibleIDs(ctx context.Context, entity domain.EntityType) ([]string, error) {
	switch entity {
	case domain.EntityMember:
		return s.ids(ctx, memberIneligibleQuery, pq.Array(domain.IneligibleAccessLevels()))
	case domain.EntityProject:
		return s.ids(ctx, projectIneligibleQuery)
	case domain.EntityTeam, domain.EntityEvent:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, entity)
	}
}

func (s *Source) members(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, memberChangedQuery, since, pq.Array(domain.IneligibleAccessLevels()))
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceRecord
	for rows.Next() {
		var m domain.Member
		var updated sql.NullTime
		if err := rows.Scan(&m.UID, &m.Name, &m.Bio, &m.ImageURL, &m.AccessLevel,
			&m.ScheduleMeetingCount, &m.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.UpdatedAt = updated.Time
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return out, nil
}

func (s *Source) teams(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, teamChangedQuery, since)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceRecord
	for rows.Next() {
		var t domain.Team
		var updated sql.NullTime
		if err := rows.Scan(&t.UID, &t.Name, &t.ShortDescription, &t.LongDescription,
			&t.LogoURL, &t.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		t.UpdatedAt = updated.Time
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating teams: %w", err)
	}
	return out, nil
}

func (s *Source) projects(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, projectChangedQuery, since)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceRecord
	for rows.Next() {
		var p domain.Project
		var updated sql.NullTime
		if err := rows.Scan(&p.UID, &p.Name, &p.Tagline, &p.Description, &p.ReadMe,
			pq.Array(&p.Tags), &p.LogoURL, &p.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.UpdatedAt = updated.Time
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return out, nil
}

func (s *Source) events(ctx context.Context, since time.Time) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, eventChangedQuery, since)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceRecord
	for rows.Next() {
		var e domain.Event
		var updated sql.NullTime
		if err := rows.Scan(&e.UID, &e.Name, &e.Description, &e.ShortDescription,
			&e.AdditionalInfo, &e.LocationText, &e.LogoURL, &e.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.UpdatedAt = updated.Time
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}

func (s *Source) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ineligible ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}
