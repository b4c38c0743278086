package domain

import (
	"fmt"
	"strconv"
	"time"
)

// EntityType identifies one kind of source record.
type EntityType string

// Entity types read from the relational store.
const (
	EntityMember  EntityType = "member"
	EntityTeam    EntityType = "team"
	EntityProject EntityType = "project"
	EntityEvent   EntityType = "event"
)

// Entity types read from the forum document store.
const (
	EntityForumTopic EntityType = "forumTopic"
	EntityForumPost  EntityType = "forumPost"
)

// RelationalEntities returns the relational entity types in extraction order.
func RelationalEntities() []EntityType {
	return []EntityType{EntityMember, EntityTeam, EntityProject, EntityEvent}
}

// ForumEntities returns the forum entity types in extraction order.
func ForumEntities() []EntityType {
	return []EntityType{EntityForumTopic, EntityForumPost}
}

// Stream returns the checkpoint stream the entity type belongs to.
func (e EntityType) Stream() Stream {
	switch e {
	case EntityForumTopic, EntityForumPost:
		return StreamForum
	default:
		return StreamRelational
	}
}

// Category returns the result category documents of this type are indexed under.
func (e EntityType) Category() Category {
	switch e {
	case EntityMember:
		return CategoryMembers
	case EntityTeam:
		return CategoryTeams
	case EntityProject:
		return CategoryProjects
	case EntityEvent:
		return CategoryEvents
	case EntityForumTopic:
		return CategoryForumTopics
	case EntityForumPost:
		return CategoryForumPosts
	default:
		return ""
	}
}

// ParseEntityType validates an entity type name.
func ParseEntityType(s string) (EntityType, error) {
	for _, e := range append(RelationalEntities(), ForumEntities()...) {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: entity type %q", ErrUnsupportedType, s)
}

// SourceRecord is a raw row or document read from a source store.
type SourceRecord interface {
	// Entity returns the record's entity type.
	Entity() EntityType

	// Key returns the stable identifier used as the index document id.
	Key() string

	// ChangedAt returns the record's latest change instant.
	// ok is false when the record carries no valid timestamp.
	ChangedAt() (t time.Time, ok bool)
}

// Access levels that keep a member out of the index.
var ineligibleAccessLevels = map[string]bool{
	"L0":       true,
	"L1":       true,
	"Rejected": true,
}

// IneligibleAccessLevels lists the member access levels excluded from the index.
func IneligibleAccessLevels() []string {
	return []string{"L0", "L1", "Rejected"}
}

// MemberEligible reports whether a member with the given access level may be indexed.
func MemberEligible(accessLevel string) bool {
	return !ineligibleAccessLevels[accessLevel]
}

// Member is a directory member.
type Member struct {
	UID         string
	Name        string
	Bio         string
	ImageURL    string
	AccessLevel string

	// ScheduleMeetingCount is carried through to the index for ranking only.
	ScheduleMeetingCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m Member) Entity() EntityType { return EntityMember }
func (m Member) Key() string        { return m.UID }
func (m Member) ChangedAt() (time.Time, bool) {
	return MaxTime(m.CreatedAt, m.UpdatedAt), true
}

// Team is an organisation in the directory.
type Team struct {
	UID              string
	Name             string
	ShortDescription string
	LongDescription  string
	LogoURL          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t Team) Entity() EntityType { return EntityTeam }
func (t Team) Key() string        { return t.UID }
func (t Team) ChangedAt() (time.Time, bool) {
	return MaxTime(t.CreatedAt, t.UpdatedAt), true
}

// Project is a project listing.
type Project struct {
	UID         string
	Name        string
	Tagline     string
	Description string
	ReadMe      string
	Tags        []string
	LogoURL     string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Project) Entity() EntityType { return EntityProject }
func (p Project) Key() string        { return p.UID }
func (p Project) ChangedAt() (time.Time, bool) {
	return MaxTime(p.CreatedAt, p.UpdatedAt), true
}

// Event is a scheduled event.
type Event struct {
	UID              string
	Name             string
	Description      string
	ShortDescription string
	AdditionalInfo   string
	LocationText     string
	LogoURL          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (e Event) Entity() EntityType { return EntityEvent }
func (e Event) Key() string        { return e.UID }
func (e Event) ChangedAt() (time.Time, bool) {
	return MaxTime(e.CreatedAt, e.UpdatedAt), true
}

// ForumTopic is a forum thread. Timestamps are raw store values in
// either seconds or milliseconds.
type ForumTopic struct {
	TID        int64
	Title      string
	Name       string
	Slug       string
	CategoryID int64
	PostCount  int
	CreatedAt  int64
	LastPostAt int64
	Deleted    bool
}

func (t ForumTopic) Entity() EntityType { return EntityForumTopic }
func (t ForumTopic) Key() string        { return strconv.FormatInt(t.TID, 10) }
func (t ForumTopic) ChangedAt() (time.Time, bool) {
	return LatestTimestamp(t.CreatedAt, t.LastPostAt)
}

// ForumPost is a single post within a topic. Topic fields are joined in
// by the extractor.
type ForumPost struct {
	PID         int64
	TopicID     int64
	AuthorID    int64
	Name        string
	ContentHTML string
	CreatedAt   int64
	EditedAt    int64
	Deleted     bool

	TopicTitle      string
	TopicSlug       string
	TopicCategoryID int64

	// IsComment is false only for the first post of its topic.
	IsComment bool
}

func (p ForumPost) Entity() EntityType { return EntityForumPost }
func (p ForumPost) Key() string        { return strconv.FormatInt(p.PID, 10) }
func (p ForumPost) ChangedAt() (time.Time, bool) {
	return LatestTimestamp(p.CreatedAt, p.EditedAt)
}

// Compile-time interface checks.
var (
	_ SourceRecord = Member{}
	_ SourceRecord = Team{}
	_ SourceRecord = Project{}
	_ SourceRecord = Event{}
	_ SourceRecord = ForumTopic{}
	_ SourceRecord = ForumPost{}
)
