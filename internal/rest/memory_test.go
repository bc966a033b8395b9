package rest

import (
	"net/url"
	"testing"
)

func TestOrderDescending(t *testing.T) {
	ds := applyOrder(contactSet(), "order", url.Values{"order": {"-last_name"}})
	records := mustAll(t, ds)
	want := []string{"Turing", "Lovelace", "Hopper", "Dijkstra"}
	for i, name := range want {
		if records[i]["last_name"] != name {
			t.Fatalf("position %d: expected %s, got %v", i, name, records[i]["last_name"])
		}
	}
}

func TestOrderMultiKeyStable(t *testing.T) {
	ds := NewMemorySet([]Record{
		{"id": 1, "group": "b", "rank": 2},
		{"id": 2, "group": "a", "rank": 2},
		{"id": 3, "group": "a", "rank": 1},
	}).Order("group", "rank")

	assertIDs(t, mustAll(t, ds), 3, 2, 1)
}

func TestOrderUnknownFieldSurfaces(t *testing.T) {
	if _, err := contactSet().Order("no_such_field").All(); err == nil {
		t.Fatalf("ordering by an unknown field must surface an error")
	}
}

func TestOrderDisabledParamIsNoop(t *testing.T) {
	ds := applyOrder(contactSet(), "", url.Values{"order": {"-last_name"}})
	assertIDs(t, mustAll(t, ds), 1, 2, 3, 4)
}

func TestMemorySetDerivationsDoNotMutateBase(t *testing.T) {
	base := contactSet()
	_ = base.Filter(Eq("first_name", "Ada"))
	_ = base.Order("-id")
	_ = base.Slice(0, 1, 1)

	if n, _ := base.Count(); n != 4 {
		t.Fatalf("derivations must not mutate the base set, count = %d", n)
	}
}

func TestMemorySetOne(t *testing.T) {
	if _, err := contactSet().Filter(Eq("id", "99")).One(); err != ErrNoItem {
		t.Fatalf("expected ErrNoItem, got %v", err)
	}
	if _, err := contactSet().One(); err != ErrMultipleItems {
		t.Fatalf("expected ErrMultipleItems, got %v", err)
	}
	rec, err := contactSet().Filter(Eq("id", "2")).One()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec["first_name"] != "Grace" {
		t.Fatalf("expected Grace, got %v", rec["first_name"])
	}
}

func TestStringList(t *testing.T) {
	if got := StringList([]string{"a", "b"}); len(got) != 2 {
		t.Fatalf("expected 2 items, got %v", got)
	}
	if got := StringList(`["x","y","z"]`); len(got) != 3 || got[2] != "z" {
		t.Fatalf("JSON list decode failed: %v", got)
	}
	if got := StringList("plain"); len(got) != 1 || got[0] != "plain" {
		t.Fatalf("plain string should be a single-element list: %v", got)
	}
	if got := StringList(""); got != nil {
		t.Fatalf("empty string should be nil, got %v", got)
	}
	if got := StringList(nil); got != nil {
		t.Fatalf("nil should be nil, got %v", got)
	}
}
