package driven

// Normaliser converts a markup-formatted field to plain text.
type Normaliser interface {
	// Format returns the markup format handled, e.g. "html" or "markdown".
	Format() string

	// Normalise returns readable plain text with whitespace collapsed.
	Normalise(content string) string
}
