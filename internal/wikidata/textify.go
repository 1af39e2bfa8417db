package wikidata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Textifier renders entities as plain text suitable for embedding and
// cross-encoder scoring.
type Textifier struct {
	client *Client
}

// NewTextifier creates a textifier backed by the given API client.
func NewTextifier(client *Client) *Textifier {
	return &Textifier{client: client}
}

// EntityText fetches an entity and renders it as a single string. An
// entity that does not exist renders as the empty string. A missing or
// wildcard language falls back to English.
func (t *Textifier) EntityText(ctx context.Context, id, lang string) (string, error) {
	if lang == "" || lang == "all" {
		lang = "en"
	}

	entities, err := t.client.GetEntities(ctx, []string{id}, AllProps, lang)
	if err != nil {
		return "", err
	}
	entity, ok := entities[id]
	if !ok || entity.IsMissing() {
		return "", nil
	}
	return t.render(ctx, entity, lang)
}

func (t *Textifier) render(ctx context.Context, entity Entity, lang string) (string, error) {
	labels, err := t.resolveLabels(ctx, entity.Claims, lang)
	if err != nil {
		return "", err
	}

	text := langValue(entity.Labels, lang)
	if desc := langValue(entity.Descriptions, lang); desc != "" {
		text += ", " + desc
	}
	if aliases := langValues(entity.Aliases, lang); len(aliases) > 0 {
		text += ", also known as " + strings.Join(aliases, ", ")
	}

	claims := claimsToValues(entity.Claims, labels, lang)
	if len(claims) > 0 {
		return text + ". Attributes include: " + propertiesToText(claims), nil
	}
	return text + ".", nil
}

// resolveLabels fetches labels for every entity the claims refer to.
func (t *Textifier) resolveLabels(ctx context.Context, claims map[string][]Statement, lang string) (map[string]string, error) {
	ids := referencedIDs(claims)
	entities, err := t.client.GetEntities(ctx, ids, LabelProps, lang)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(entities))
	for id, entity := range entities {
		labels[id] = langValue(entity.Labels, lang)
	}
	return labels, nil
}

// qualifierValues is one qualifier property with its rendered values.
type qualifierValues struct {
	PID    string
	Label  string
	Values []string
}

// claimValue is one rendered statement value with its qualifiers.
type claimValue struct {
	Value      string
	Qualifiers []qualifierValues
}

// propertyValues is one claim property with its selected values.
type propertyValues struct {
	PID    string
	Label  string
	Values []claimValue
}

// claimsToValues renders all claims, selecting values by rank: when any
// preferred-rank statement renders, only preferred values are kept;
// otherwise normal-rank values are kept. Deprecated statements never
// render. Properties are ordered by their numeric ID.
func claimsToValues(claims map[string][]Statement, labels map[string]string, lang string) []propertyValues {
	out := make([]propertyValues, 0, len(claims))

	for _, pid := range sortedPropertyIDs(claims) {
		var values []claimValue
		preferredFound := false

		for _, st := range claims[pid] {
			value, ok := renderSnak(st.MainSnak, labels, lang)
			if !ok {
				continue
			}

			rank := strings.ToLower(st.Rank)
			isNormal := rank == "" || rank == "normal"
			isPreferred := rank == "preferred"
			if !isPreferred && !(isNormal && !preferredFound) {
				continue
			}
			if isPreferred && !preferredFound {
				preferredFound = true
				values = nil
			}

			values = append(values, claimValue{
				Value:      value,
				Qualifiers: qualifiersToValues(st, labels, lang),
			})
		}

		if len(values) > 0 {
			out = append(out, propertyValues{
				PID:    pid,
				Label:  propertyLabel(pid, labels),
				Values: values,
			})
		}
	}
	return out
}

// qualifiersToValues renders a statement's qualifiers, following the
// statement's qualifier order when present.
func qualifiersToValues(st Statement, labels map[string]string, lang string) []qualifierValues {
	if len(st.Qualifiers) == 0 {
		return nil
	}

	order := st.QualifiersOrder
	if len(order) == 0 {
		order = make([]string, 0, len(st.Qualifiers))
		for pid := range st.Qualifiers {
			order = append(order, pid)
		}
		sortEntityIDs(order)
	}

	out := make([]qualifierValues, 0, len(order))
	for _, pid := range order {
		var rendered []string
		for _, snak := range st.Qualifiers[pid] {
			if value, ok := renderSnak(snak, labels, lang); ok {
				rendered = append(rendered, value)
			}
		}
		if len(rendered) > 0 {
			out = append(out, qualifierValues{
				PID:    pid,
				Label:  propertyLabel(pid, labels),
				Values: rendered,
			})
		}
	}
	return out
}

// propertiesToText renders claim lines, one property per line.
func propertiesToText(properties []propertyValues) string {
	var b strings.Builder
	for _, prop := range properties {
		if len(prop.Values) == 0 {
			fmt.Fprintf(&b, "\n- has %s.", prop.Label)
			continue
		}
		parts := make([]string, len(prop.Values))
		for i, v := range prop.Values {
			parts[i] = v.Value + qualifiersToText(v.Qualifiers)
		}
		fmt.Fprintf(&b, "\n- %s: %s.", prop.Label, strings.Join(parts, ", "))
	}
	return b.String()
}

// qualifiersToText renders a value's qualifiers as parenthesized
// groups appended after the value.
func qualifiersToText(qualifiers []qualifierValues) string {
	if len(qualifiers) == 0 {
		return ""
	}
	parts := make([]string, len(qualifiers))
	for i, q := range qualifiers {
		parts[i] = fmt.Sprintf("(%s: %s)", q.Label, strings.Join(q.Values, ", "))
	}
	return " " + strings.Join(parts, " ")
}

func propertyLabel(pid string, labels map[string]string) string {
	if label := labels[pid]; label != "" {
		return label
	}
	return pid
}

func sortedPropertyIDs(claims map[string][]Statement) []string {
	ids := make([]string, 0, len(claims))
	for pid := range claims {
		ids = append(ids, pid)
	}
	sortEntityIDs(ids)
	return ids
}

// sortEntityIDs orders IDs by their numeric part, so P31 sorts before
// P279.
func sortEntityIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ni, iok := idNumber(ids[i])
		nj, jok := idNumber(ids[j])
		if iok && jok {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
}

func idNumber(id string) (int, bool) {
	if len(id) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
