// Package wikidata renders Wikidata entities as plain text. Entities are
// fetched over the wbgetentities action API and flattened to a single
// string: label, description and aliases followed by one line per
// property with its best-ranked values.
package wikidata

import "encoding/json"

// Term is a language-tagged label, description or alias value.
type Term struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// DataValue is the typed value carried by a snak. Value stays raw until
// the datatype-specific renderer decodes it.
type DataValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Snak is a single property-value assertion.
type Snak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataType  string     `json:"datatype"`
	DataValue *DataValue `json:"datavalue,omitempty"`
}

// Statement is one claim on an entity.
type Statement struct {
	MainSnak        Snak              `json:"mainsnak"`
	Rank            string            `json:"rank"`
	Qualifiers      map[string][]Snak `json:"qualifiers,omitempty"`
	QualifiersOrder []string          `json:"qualifiers-order,omitempty"`
}

// Entity is a Wikidata item or property as returned by wbgetentities.
type Entity struct {
	ID           string                 `json:"id"`
	Labels       map[string]Term        `json:"labels"`
	Descriptions map[string]Term        `json:"descriptions"`
	Aliases      map[string][]Term      `json:"aliases"`
	Claims       map[string][]Statement `json:"claims"`
	Missing      *string                `json:"missing,omitempty"`
}

// IsMissing reports whether the API returned a placeholder for an
// entity that does not exist.
func (e Entity) IsMissing() bool {
	return e.Missing != nil
}

// langValue picks the value for lang, falling back to the
// language-neutral "mul" term.
func langValue(terms map[string]Term, lang string) string {
	if t, ok := terms[lang]; ok {
		return t.Value
	}
	return terms["mul"].Value
}

// langValues picks the alias values for lang, falling back to "mul".
func langValues(aliases map[string][]Term, lang string) []string {
	terms, ok := aliases[lang]
	if !ok {
		terms = aliases["mul"]
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		out = append(out, t.Value)
	}
	return out
}

// timeValue is the wire form of a time datavalue.
type timeValue struct {
	Time          string `json:"time"`
	Precision     int    `json:"precision"`
	CalendarModel string `json:"calendarmodel"`
}

// quantityValue is the wire form of a quantity datavalue. Amount keeps
// its explicit sign.
type quantityValue struct {
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// coordinateValue is the wire form of a globe-coordinate datavalue.
type coordinateValue struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// monolingualValue is the wire form of a monolingualtext datavalue.
type monolingualValue struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// entityIDValue is the wire form of an entity reference datavalue.
type entityIDValue struct {
	ID string `json:"id"`
}
