// Package search implements hybrid retrieval over the Wikidata vector
// store: a vector channel and a keyword channel run concurrently and
// their outputs are combined with reciprocal rank fusion, optionally
// followed by a cross-encoder rerank pass.
package search

import (
	"context"
	"encoding/json"
	"regexp"
)

// Channel names reported in the source field of results.
const (
	VectorChannel  = "Vector Search"
	KeywordChannel = "Keyword Search"
)

var entityIDPattern = regexp.MustCompile(`^[PQ]\d+$`)

// IsEntityID reports whether s is a bare Wikidata entity identifier
// such as Q42 or P31.
func IsEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

// Candidate is one entity produced by a retrieval channel before fusion.
type Candidate struct {
	ID         string
	Similarity float64
	Text       string
	Vector     []float32
}

// ChannelResult is the ranked output of one retrieval channel.
type ChannelResult struct {
	Name       string
	Candidates []Candidate
}

// Result is a fused search result. RerankerScore is set only when the
// rerank pass ran.
type Result struct {
	ID            string
	Similarity    float64
	RRFScore      float64
	Source        string
	RerankerScore *float64
	Text          string
	Vector        []float32

	// sourceRank tracks the best rank seen across channels during
	// fusion and is never serialized.
	sourceRank int
}

type resultJSON struct {
	QID           string    `json:"QID,omitempty"`
	PID           string    `json:"PID,omitempty"`
	Similarity    float64   `json:"similarity_score"`
	RRFScore      float64   `json:"rrf_score,omitempty"`
	Source        string    `json:"source,omitempty"`
	RerankerScore *float64  `json:"reranker_score,omitempty"`
	Vector        []float32 `json:"vector,omitempty"`
}

// MarshalJSON emits the identifier under "QID" for items and "PID" for
// properties.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Similarity:    r.Similarity,
		RRFScore:      r.RRFScore,
		Source:        r.Source,
		RerankerScore: r.RerankerScore,
		Vector:        r.Vector,
	}
	if len(r.ID) > 0 && r.ID[0] == 'P' {
		out.PID = r.ID
	} else {
		out.QID = r.ID
	}
	return json.Marshal(out)
}

// TextProvider renders an entity as text for rerank scoring and for
// queries that name an entity missing from the vector store.
type TextProvider interface {
	EntityText(ctx context.Context, id, lang string) (string, error)
}

// Translator converts a query into a language covered by the vector
// store.
type Translator interface {
	Translate(ctx context.Context, text, srcLang string) (string, error)
}
