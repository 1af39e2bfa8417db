package wikidata

import (
	"encoding/json"
	"sort"
	"strings"
)

// referencedIDs collects every entity ID an entity's claims refer to
// but do not label themselves: the property of each claim and
// qualifier, quantity units, and item or property values. The result
// is sorted for deterministic fetching.
func referencedIDs(claims map[string][]Statement) []string {
	set := make(map[string]struct{})
	add := func(id string) {
		if id != "" {
			set[id] = struct{}{}
		}
	}

	scan := func(s Snak) {
		add(s.Property)
		if s.DataValue == nil {
			return
		}
		switch s.DataType {
		case "wikibase-item", "wikibase-property":
			var v entityIDValue
			if json.Unmarshal(s.DataValue.Value, &v) == nil {
				add(v.ID)
			}
		case "quantity":
			var q quantityValue
			if json.Unmarshal(s.DataValue.Value, &q) == nil && q.Unit != "" && q.Unit != "1" {
				// Units are stored as concept URIs; the ID is the
				// last path segment.
				add(lastPathSegment(q.Unit))
			}
		}
	}

	for pid, statements := range claims {
		add(pid)
		for _, st := range statements {
			scan(st.MainSnak)
			for _, snaks := range st.Qualifiers {
				for _, q := range snaks {
					scan(q)
				}
			}
		}
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lastPathSegment(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
