package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wbServer serves wbgetentities responses from a fixture map. Unknown
// IDs get the API's "missing" placeholder.
type wbServer struct {
	client *Client

	mu    sync.Mutex
	ids   [][]string
	langs []string
}

func newWBServer(t *testing.T, entities map[string]any) *wbServer {
	t.Helper()
	ws := &wbServer{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "wbgetentities", r.URL.Query().Get("action"))

		ids := strings.Split(r.URL.Query().Get("ids"), "|")
		ws.mu.Lock()
		ws.ids = append(ws.ids, ids)
		ws.langs = append(ws.langs, r.URL.Query().Get("languages"))
		ws.mu.Unlock()

		out := make(map[string]any, len(ids))
		for _, id := range ids {
			if e, ok := entities[id]; ok {
				out[id] = e
			} else {
				out[id] = map[string]any{"id": id, "missing": ""}
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"entities": out}))
	}))
	t.Cleanup(server.Close)

	ws.client = NewClient(server.URL, time.Second)
	return ws
}

func labelEntity(id, label string) map[string]any {
	return map[string]any{
		"id": id,
		"labels": map[string]any{
			"en": map[string]any{"language": "en", "value": label},
		},
	}
}

func itemSnak(pid, qid string) map[string]any {
	return map[string]any{
		"snaktype": "value",
		"property": pid,
		"datatype": "wikibase-item",
		"datavalue": map[string]any{
			"type":  "wikibase-entityid",
			"value": map[string]any{"id": qid},
		},
	}
}

func quantitySnak(pid, amount, unit string) map[string]any {
	return map[string]any{
		"snaktype": "value",
		"property": pid,
		"datatype": "quantity",
		"datavalue": map[string]any{
			"type":  "quantity",
			"value": map[string]any{"amount": amount, "unit": unit},
		},
	}
}

func timeSnak(pid, ts string, precision int) map[string]any {
	return map[string]any{
		"snaktype": "value",
		"property": pid,
		"datatype": "time",
		"datavalue": map[string]any{
			"type": "time",
			"value": map[string]any{
				"time":          ts,
				"precision":     precision,
				"calendarmodel": "http://www.wikidata.org/entity/Q1985727",
			},
		},
	}
}

func TestEntityTextFull(t *testing.T) {
	entities := map[string]any{
		"Q42": map[string]any{
			"id": "Q42",
			"labels": map[string]any{
				"en": map[string]any{"language": "en", "value": "Douglas Adams"},
			},
			"descriptions": map[string]any{
				"en": map[string]any{"language": "en", "value": "English writer and humorist"},
			},
			"aliases": map[string]any{
				"en": []any{
					map[string]any{"language": "en", "value": "DNA"},
					map[string]any{"language": "en", "value": "Douglas Noël Adams"},
				},
			},
			"claims": map[string]any{
				"P31": []any{
					map[string]any{
						"mainsnak": itemSnak("P31", "Q5"),
						"rank":     "normal",
					},
				},
				"P569": []any{
					map[string]any{
						"mainsnak": timeSnak("P569", "+1952-03-11T00:00:00Z", 11),
						"rank":     "normal",
					},
				},
				"P26": []any{
					map[string]any{
						"mainsnak": itemSnak("P26", "Q14623681"),
						"rank":     "normal",
						"qualifiers": map[string]any{
							"P580": []any{timeSnak("P580", "+1991-11-25T00:00:00Z", 11)},
						},
						"qualifiers-order": []any{"P580"},
					},
				},
			},
		},
		"P26":       labelEntity("P26", "spouse"),
		"P31":       labelEntity("P31", "instance of"),
		"P569":      labelEntity("P569", "date of birth"),
		"P580":      labelEntity("P580", "start time"),
		"Q5":        labelEntity("Q5", "human"),
		"Q14623681": labelEntity("Q14623681", "Jane Belson"),
	}

	ws := newWBServer(t, entities)
	textifier := NewTextifier(ws.client)

	got, err := textifier.EntityText(context.Background(), "Q42", "en")
	require.NoError(t, err)

	want := "Douglas Adams, English writer and humorist, also known as DNA, Douglas Noël Adams." +
		" Attributes include: " +
		"\n- spouse: Jane Belson (start time: 25 Nov 1991)." +
		"\n- instance of: human." +
		"\n- date of birth: 11 Mar 1952."
	assert.Equal(t, want, got)
}

func TestEntityTextRankSelection(t *testing.T) {
	entities := map[string]any{
		"Q64": map[string]any{
			"id": "Q64",
			"labels": map[string]any{
				"en": map[string]any{"language": "en", "value": "Berlin"},
			},
			"descriptions": map[string]any{},
			"aliases":      map[string]any{},
			"claims": map[string]any{
				"P1082": []any{
					map[string]any{
						"mainsnak": quantitySnak("P1082", "+3400000", "1"),
						"rank":     "normal",
					},
					map[string]any{
						"mainsnak": quantitySnak("P1082", "+3755251", "1"),
						"rank":     "preferred",
					},
					map[string]any{
						"mainsnak": quantitySnak("P1082", "+3500000", "1"),
						"rank":     "normal",
					},
					map[string]any{
						"mainsnak": quantitySnak("P1082", "+1000000", "1"),
						"rank":     "deprecated",
					},
				},
			},
		},
		"P1082": labelEntity("P1082", "population"),
	}

	ws := newWBServer(t, entities)
	textifier := NewTextifier(ws.client)

	got, err := textifier.EntityText(context.Background(), "Q64", "en")
	require.NoError(t, err)

	// The preferred statement displaces every normal one, including
	// those seen before it; deprecated statements never render.
	assert.Equal(t, "Berlin. Attributes include: \n- population: +3755251.", got)
}

func TestEntityTextNotFound(t *testing.T) {
	ws := newWBServer(t, nil)
	textifier := NewTextifier(ws.client)

	got, err := textifier.EntityText(context.Background(), "Q999999999", "en")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEntityTextNoClaims(t *testing.T) {
	entities := map[string]any{
		"Q1": map[string]any{
			"id": "Q1",
			"labels": map[string]any{
				"en": map[string]any{"language": "en", "value": "universe"},
			},
			"descriptions": map[string]any{
				"en": map[string]any{"language": "en", "value": "everything that exists"},
			},
			"aliases": map[string]any{},
			"claims":  map[string]any{},
		},
	}

	ws := newWBServer(t, entities)
	textifier := NewTextifier(ws.client)

	got, err := textifier.EntityText(context.Background(), "Q1", "en")
	require.NoError(t, err)
	assert.Equal(t, "universe, everything that exists.", got)
}

func TestEntityTextMulFallback(t *testing.T) {
	entities := map[string]any{
		"Q7251": map[string]any{
			"id": "Q7251",
			"labels": map[string]any{
				"mul": map[string]any{"language": "mul", "value": "Alan Turing"},
			},
			"descriptions": map[string]any{},
			"aliases":      map[string]any{},
			"claims":       map[string]any{},
		},
	}

	ws := newWBServer(t, entities)
	textifier := NewTextifier(ws.client)

	got, err := textifier.EntityText(context.Background(), "Q7251", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Alan Turing.", got)
}

func TestEntityTextWildcardLang(t *testing.T) {
	ws := newWBServer(t, nil)
	textifier := NewTextifier(ws.client)

	_, err := textifier.EntityText(context.Background(), "Q42", "all")
	require.NoError(t, err)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.NotEmpty(t, ws.langs)
	// "all" is not a real language; English is requested instead.
	assert.Equal(t, "en|mul", ws.langs[0])
}

func TestGetEntitiesChunking(t *testing.T) {
	ws := newWBServer(t, nil)

	ids := make([]string, 0, 60)
	for i := 1; i <= 60; i++ {
		ids = append(ids, fmt.Sprintf("Q%d", i))
	}
	// Duplicates collapse before chunking.
	ids = append(ids, ids[0])

	_, err := ws.client.GetEntities(context.Background(), ids, LabelProps, "en")
	require.NoError(t, err)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	require.Len(t, ws.ids, 2)
	assert.Len(t, ws.ids[0], 50)
	assert.Len(t, ws.ids[1], 10)
}
