package rest

import (
	"net/url"
	"testing"
)

func contactSet() *MemorySet {
	return NewMemorySet([]Record{
		{"id": 1, "first_name": "Ada", "last_name": "Lovelace",
			"emails": []string{"ada@example.com"}, "memberships__list": []string{"2", "3"}},
		{"id": 2, "first_name": "Grace", "last_name": "Hopper",
			"emails": []string{"grace@example.com", "gh@navy.mil"}, "memberships__list": []string{"2"}},
		{"id": 3, "first_name": "Alan", "last_name": "Turing",
			"emails": `["alan@example.com"]`, "memberships__list": []string{"3"}},
		{"id": 4, "first_name": "Edsger", "last_name": "Dijkstra",
			"emails": []string{}, "memberships__list": nil},
	})
}

func mustAll(t *testing.T, ds DataSet) []Record {
	t.Helper()
	records, err := ds.All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return records
}

func ids(records []Record) []int {
	out := make([]int, 0, len(records))
	for _, rec := range records {
		out = append(out, rec["id"].(int))
	}
	return out
}

func assertIDs(t *testing.T, records []Record, want ...int) {
	t.Helper()
	got := ids(records)
	if len(got) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, got)
		}
	}
}

func TestInAllIntersection(t *testing.T) {
	ds, err := inAllFilter(contactSet(), "memberships__list__in_all", []string{"2", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, mustAll(t, ds), 1)
}

func TestInAllIdempotent(t *testing.T) {
	once, err := inAllFilter(contactSet(), "memberships__list__in_all", []string{"2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	twice, err := inAllFilter(once, "memberships__list__in_all", []string{"2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := ids(mustAll(t, twice)), ids(mustAll(t, once)); len(got) != len(want) {
		t.Fatalf("filtering twice by the same value changed the result: %v vs %v", got, want)
	}
}

func TestInAllEmptyValueMeansAbsent(t *testing.T) {
	ds, err := inAllFilter(contactSet(), "memberships__list__in_all", []string{"2", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, mustAll(t, ds), 4)
}

func TestInAllNullMarker(t *testing.T) {
	ds, err := inAllFilter(contactSet(), "memberships__list__in_all", []string{"null"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, mustAll(t, ds), 4)
}

func TestISearchCaseInsensitiveAny(t *testing.T) {
	ds, err := isearchFilter(contactSet(), "last_name__isearch", []string{"HOPPER", "turing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertIDs(t, mustAll(t, ds), 2, 3)
}

func TestInListPreFilterIsSuperset(t *testing.T) {
	base := contactSet()
	values := []string{"GH@NAVY.MIL", "alan@example.com"}

	conds := make([]Cond, 0, len(values))
	for _, v := range values {
		conds = append(conds, Cond{Field: "emails", Op: OpIContains, Value: v})
	}
	pre := mustAll(t, base.Filter(AnyOf(conds...)))

	final, err := inListFilter(base, "emails__in_list", values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	finalIDs := map[int]bool{}
	for _, id := range ids(mustAll(t, final)) {
		finalIDs[id] = true
	}
	preIDs := map[int]bool{}
	for _, id := range ids(pre) {
		preIDs[id] = true
	}
	for id := range finalIDs {
		if !preIDs[id] {
			t.Fatalf("pre-filter result must be a superset; missing id %d", id)
		}
	}
	assertIDs(t, mustAll(t, final), 2, 3)
}

func TestMultiFieldSearchTermsAnded(t *testing.T) {
	ds := applySearch(contactSet(), []string{"first_name", "last_name"}, []string{"ada love"})
	assertIDs(t, mustAll(t, ds), 1)

	ds = applySearch(contactSet(), []string{"first_name", "last_name"}, []string{"a"})
	// "a" matches a name field on every contact except none; all four have an "a".
	assertIDs(t, mustAll(t, ds), 1, 2, 3, 4)
}

func TestExactFilterRepeatedValuesNarrow(t *testing.T) {
	filters := []resolvedFilter{{param: "status", kind: filterExact, field: "status"}}
	ds := NewMemorySet([]Record{
		{"id": 1, "status": "active"},
		{"id": 2, "status": "archived"},
	})

	out, err := applyFilters(ds, filters, url.Values{"status": {"active", "archived"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records := mustAll(t, out); len(records) != 0 {
		t.Fatalf("repeated exact values intersect; expected empty set, got %v", ids(records))
	}
}

func TestFilterWithoutValuesIsNoop(t *testing.T) {
	filters := []resolvedFilter{{param: "status", kind: filterExact, field: "status"}}
	ds := contactSet()

	out, err := applyFilters(ds, filters, url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mustAll(t, out)) != 4 {
		t.Fatalf("a filter with no values must not narrow the set")
	}
}

func TestResolveFilterKinds(t *testing.T) {
	if f, err := resolveFilter("q", FilterSpec{Fields: []string{"a", "b"}}); err != nil || f.kind != filterSearch {
		t.Fatalf("expected search kind, got %+v err %v", f, err)
	}
	if f, err := resolveFilter("list", FilterSpec{Definition: "memberships__list__in_all"}); err != nil || f.kind != filterCustom {
		t.Fatalf("expected custom kind, got %+v err %v", f, err)
	}
	if f, err := resolveFilter("status", FilterSpec{Definition: "status"}); err != nil || f.kind != filterExact {
		t.Fatalf("expected exact kind, got %+v err %v", f, err)
	}
	if _, err := resolveFilter("bad", FilterSpec{}); err == nil {
		t.Fatalf("empty filter spec must be a configuration error")
	}
}

func TestRegisterAmbiguousSuffixRejected(t *testing.T) {
	if err := RegisterFilterSuffix("_all", func(ds DataSet, d string, v []string) (DataSet, error) {
		return ds, nil
	}); err == nil {
		t.Fatalf("suffix ambiguous with __in_all must be rejected")
	}
}
