package domain

import (
	"strconv"
	"strings"
)

// PostPreviewLength is how much post content is used to name an untitled post.
const PostPreviewLength = 120

// DefaultExcerptLength bounds autocomplete excerpt fields.
const DefaultExcerptLength = 50

// Ellipsis marks truncated text.
const Ellipsis = "..."

// TopicDisplayName names a forum topic by its title, falling back to name.
func TopicDisplayName(title, name string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return name
}

// PostDisplayName names a forum post.
// A post's own name wins. Otherwise it is "[topicTitle] " followed by the
// first 120 characters of content, or the bare content without a topic title.
func PostDisplayName(name, topicTitle, content string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if strings.TrimSpace(topicTitle) == "" {
		return content
	}
	return "[" + topicTitle + "] " + truncateRunes(content, PostPreviewLength)
}

// PostURL builds a forum post link from its topic slug and post id.
func PostURL(topicSlug string, pid int64) string {
	return "/topic/" + topicSlug + "/" + strconv.FormatInt(pid, 10)
}

// TopicURL builds a forum topic link from its slug.
func TopicURL(slug string) string {
	return "/topic/" + slug
}

// TruncateExcerpt shortens s to max characters followed by an ellipsis.
// Values of max characters or fewer are returned unchanged.
func TruncateExcerpt(s string, max int) string {
	if max <= 0 {
		return s
	}
	if len([]rune(s)) <= max {
		return s
	}
	return truncateRunes(s, max) + Ellipsis
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
