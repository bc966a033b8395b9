package rest

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FilterFunc is a custom filter predicate. It receives the data set, the
// raw filter definition string (association path plus lookup suffix) and
// the values supplied on the query string.
type FilterFunc func(ds DataSet, definition string, values []string) (DataSet, error)

// FilterSpec declares one filter. Either Definition (single field,
// possibly carrying a registered lookup suffix) or Fields (multi-field
// text search) is set.
type FilterSpec struct {
	Definition string
	Fields     []string
}

var filterSuffixes = map[string]FilterFunc{}

// RegisterFilterSuffix binds a lookup suffix to a custom filter. Suffix
// collisions that would make definition matching ambiguous are rejected.
func RegisterFilterSuffix(suffix string, fn FilterFunc) error {
	if suffix == "" || fn == nil {
		return fmt.Errorf("filter suffix registration needs a suffix and a handler")
	}
	for registered := range filterSuffixes {
		if strings.HasSuffix(registered, suffix) || strings.HasSuffix(suffix, registered) {
			return fmt.Errorf("filter suffix %q is ambiguous with registered %q", suffix, registered)
		}
	}
	filterSuffixes[suffix] = fn
	return nil
}

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(RegisterFilterSuffix("__in_all", inAllFilter))
	must(RegisterFilterSuffix("__isearch", isearchFilter))
	must(RegisterFilterSuffix("__in_list", inListFilter))
}

type filterKind int

const (
	filterExact filterKind = iota
	filterSearch
	filterCustom
)

type resolvedFilter struct {
	param      string
	kind       filterKind
	field      string // exact
	fields     []string // search
	definition string // custom
	fn         FilterFunc
}

// resolveFilter classifies a declared filter once, at resource build time.
// Unknown suffixes are not an error: a definition with no registered
// suffix is an exact-match field name.
func resolveFilter(param string, spec FilterSpec) (resolvedFilter, error) {
	if len(spec.Fields) > 0 {
		if spec.Definition != "" {
			return resolvedFilter{}, fmt.Errorf("filter %q declares both a definition and a field list", param)
		}
		return resolvedFilter{param: param, kind: filterSearch, fields: spec.Fields}, nil
	}
	if spec.Definition == "" {
		return resolvedFilter{}, fmt.Errorf("filter %q declares neither a definition nor a field list", param)
	}
	for suffix, fn := range filterSuffixes {
		if strings.HasSuffix(spec.Definition, suffix) {
			return resolvedFilter{param: param, kind: filterCustom, definition: spec.Definition, fn: fn}, nil
		}
	}
	return resolvedFilter{param: param, kind: filterExact, field: spec.Definition}, nil
}

// applyFilters narrows ds per each declared filter that has at least one
// value on the query string. Filters with no values are no-ops.
func applyFilters(ds DataSet, filters []resolvedFilter, query url.Values) (DataSet, error) {
	for _, f := range filters {
		values := query[f.param]
		if len(values) == 0 {
			continue
		}
		var err error
		switch f.kind {
		case filterExact:
			// Repeated values each narrow the set further (intersection).
			for _, v := range values {
				ds = ds.Filter(Eq(f.field, v))
			}
		case filterSearch:
			ds = applySearch(ds, f.fields, values)
		case filterCustom:
			ds, err = f.fn(ds, f.definition, values)
			if err != nil {
				return nil, err
			}
		}
	}
	return ds, nil
}

// applySearch splits the supplied values into whitespace-separated terms.
// Every term must match, case-insensitively, at least one of the listed
// fields.
func applySearch(ds DataSet, fields, values []string) DataSet {
	var terms []string
	for _, v := range values {
		terms = append(terms, strings.Fields(v)...)
	}
	for _, term := range terms {
		conds := make([]Cond, 0, len(fields))
		for _, field := range fields {
			conds = append(conds, Cond{Field: field, Op: OpIContains, Value: term})
		}
		ds = ds.Filter(AnyOf(conds...))
	}
	return ds
}

// inAllFilter handles the __in_all lookup: keep records related, through
// the definition's association path, to every supplied value. An empty
// string or the literal null marker among the values turns the whole
// filter into "field is absent" and all other values are ignored.
func inAllFilter(ds DataSet, definition string, values []string) (DataSet, error) {
	field := strings.TrimSuffix(definition, "__in_all")
	for _, v := range values {
		if v == "" || v == "null" {
			return ds.Filter(IsNull(field)), nil
		}
	}
	matcher, ok := ds.(AllMatcher)
	if !ok {
		return nil, fmt.Errorf("data set %T does not support the __in_all lookup", ds)
	}
	return matcher.MatchAll(field, values)
}

// isearchFilter handles the __isearch lookup: OR of case-insensitive
// exact matches across all values.
func isearchFilter(ds DataSet, definition string, values []string) (DataSet, error) {
	field := strings.TrimSuffix(definition, "__isearch")
	conds := make([]Cond, 0, len(values))
	for _, v := range values {
		conds = append(conds, Cond{Field: field, Op: OpIEq, Value: v})
	}
	return ds.Filter(AnyOf(conds...)), nil
}

// inListFilter handles the __in_list lookup over multi-value (array-like)
// attributes. Phase one shrinks the candidate set with a cheap substring
// pre-filter at the collection-query level; phase two materializes only
// the shrunken set and keeps records whose stored list intersects the
// supplied values case-insensitively.
func inListFilter(ds DataSet, definition string, values []string) (DataSet, error) {
	field := strings.TrimSuffix(definition, "__in_list")

	conds := make([]Cond, 0, len(values))
	for _, v := range values {
		conds = append(conds, Cond{Field: field, Op: OpIContains, Value: v})
	}
	candidates, err := ds.Filter(AnyOf(conds...)).All()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[strings.ToLower(v)] = true
	}
	kept := []Record{}
	for _, rec := range candidates {
		for _, have := range StringList(rec[field]) {
			if wanted[strings.ToLower(have)] {
				kept = append(kept, rec)
				break
			}
		}
	}
	return NewMemorySet(kept), nil
}

// StringList coerces a multi-value attribute into a string slice. JSON
// array text (the usual storage form for list columns) is decoded; a
// plain non-empty string counts as a single-element list.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, valueString(item))
		}
		return out
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		if strings.HasPrefix(trimmed, "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return decoded
			}
			return nil
		}
		return []string{t}
	}
	return nil
}
