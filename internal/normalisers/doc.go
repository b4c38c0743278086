// Package normalisers provides implementations of the Normaliser interface
// for the markup formats found in source records. Each normaliser turns
// one format into plain text suitable for full-text indexing.
//
// Normalisers are handed to the document transformer at startup.
package normalisers
