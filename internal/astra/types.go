// Package astra provides a client for the Astra DB Data API, the vector
// store holding the embedded Wikidata entities. Only the read path used by
// retrieval is implemented: vector-sorted find with metadata filters.
package astra

// Filter is a Data API filter document. Supported operators are field
// equality, "$or" and "$in" over metadata fields.
type Filter map[string]any

// Clone returns a shallow copy so callers can add keys without mutating the
// original filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Metadata holds the per-document metadata fields stored alongside each
// entity vector.
type Metadata struct {
	QID        string   `json:"QID,omitempty"`
	PID        string   `json:"PID,omitempty"`
	Language   string   `json:"Language,omitempty"`
	InstanceOf []string `json:"InstanceOf,omitempty"`
	IsItem     bool     `json:"IsItem,omitempty"`
	IsProperty bool     `json:"IsProperty,omitempty"`
}

// EntityID returns the entity identifier of the document, whichever of
// QID/PID is set.
func (m Metadata) EntityID() string {
	if m.QID != "" {
		return m.QID
	}
	return m.PID
}

// Document is a single stored vector record as returned by find.
type Document struct {
	ID         string    `json:"_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	Metadata   Metadata  `json:"metadata"`
	Vector     []float32 `json:"$vector,omitempty"`
	Similarity float64   `json:"$similarity,omitempty"`
}

// FindQuery describes one find call against the collection.
type FindQuery struct {
	// Filter restricts the candidate set before the vector sort.
	Filter Filter

	// SortVector, when set, orders results by similarity to this vector.
	SortVector []float32

	// Projection selects the returned fields ({"metadata": 1, ...}).
	Projection map[string]int

	// Limit caps the number of returned documents.
	Limit int

	// IncludeSimilarity requests the $similarity field on each document.
	IncludeSimilarity bool
}
