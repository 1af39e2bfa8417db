package wikidata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
)

// lexemeDataTypes hold a bare entity reference that has no label to
// resolve; the identifier itself is rendered.
var lexemeDataTypes = map[string]bool{
	"wikibase-sense":  true,
	"wikibase-lexeme": true,
	"wikibase-form":   true,
	"entity-schema":   true,
}

// renderSnak converts a snak to its text value. The second return is
// false when the value should be dropped entirely: an unresolvable
// entity reference, or text in a different language.
func renderSnak(s Snak, labels map[string]string, lang string) (string, bool) {
	if s.SnakType != "" && s.SnakType != "value" {
		return "no value", true
	}
	if s.DataValue == nil {
		return "", false
	}
	raw := s.DataValue.Value

	// Language-tagged values only render in the requested language.
	var tagged struct {
		Language string `json:"language"`
	}
	if json.Unmarshal(raw, &tagged) == nil && tagged.Language != "" && tagged.Language != lang {
		return "", false
	}

	switch {
	case s.DataType == "wikibase-item" || s.DataType == "wikibase-property":
		var v entityIDValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false
		}
		label, ok := labels[v.ID]
		if !ok || label == "" {
			return "", false
		}
		return label, true

	case s.DataType == "monolingualtext":
		var v monolingualValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false
		}
		return v.Text, true

	case s.DataType == "time":
		var v timeValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false
		}
		text, err := formatTime(v)
		if err != nil {
			// Fall back to the raw timestamp rather than losing the
			// statement.
			slog.Debug("time_format_failed",
				slog.String("property", s.Property),
				slog.String("error", err.Error()))
			return v.Time, true
		}
		return text, true

	case s.DataType == "quantity":
		var v quantityValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", false
		}
		return renderQuantity(v, labels), true

	case s.DataType == "globe-coordinate":
		var v coordinateValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", true
		}
		return renderCoordinate(v), true

	case lexemeDataTypes[s.DataType]:
		var v entityIDValue
		if err := json.Unmarshal(raw, &v); err != nil || v.ID == "" {
			return string(raw), true
		}
		return v.ID, true

	default:
		// string, url, external-id, commonsMedia and the rest carry a
		// plain string payload.
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), true
		}
		return v, true
	}
}

// renderQuantity renders the signed amount followed by the unit label.
// A unit of "1" marks a dimensionless count.
func renderQuantity(q quantityValue, labels map[string]string) string {
	if q.Unit == "" || q.Unit == "1" {
		return q.Amount
	}
	unit := labels[lastPathSegment(q.Unit)]
	if unit == "" {
		return q.Amount
	}
	return q.Amount + " " + unit
}

// renderCoordinate renders latitude and longitude in degrees, minutes
// and seconds with hemisphere suffixes.
func renderCoordinate(c coordinateValue) string {
	return dms(c.Latitude, "N", "S") + ", " + dms(c.Longitude, "E", "W")
}

// dms converts one decimal degree value to DMS notation. Seconds are
// rounded to a tenth with trailing zeros dropped.
func dms(value float64, positive, negative string) string {
	hemi := positive
	if value < 0 {
		hemi = negative
	}
	a := math.Abs(value)

	degrees := int(a)
	minutesFull := (a - float64(degrees)) * 60
	minutes := int(minutesFull)
	seconds := math.Round((minutesFull-float64(minutes))*60*10) / 10

	return fmt.Sprintf("%d°%d'%s\"%s",
		degrees, minutes, strconv.FormatFloat(seconds, 'f', -1, 64), hemi)
}
