// Package html provides a Normaliser implementation for HTML fields.
// It extracts readable text content from HTML, stripping tags, scripts,
// styles, and decoding entities for clean searchable content.
package html
