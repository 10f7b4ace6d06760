// Package document turns source PDFs into page segments and splits them into
// overlapping passages for embedding.
package document

// Segment is the extracted text of one page of a source document.
type Segment struct {
	Source string
	Page   int
	Text   string
}

// Passage is a bounded window of segment text. Passages are immutable once
// produced and carry the metadata of the segment they came from.
type Passage struct {
	ID       string
	Source   string
	Page     int
	Position int
	Text     string
}
