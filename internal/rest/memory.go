package rest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MemorySet is an in-memory DataSet. Derivations stay lazy: pending
// operations and any error met while deriving are carried on the set and
// applied when the set is evaluated.
type MemorySet struct {
	records  []Record
	clauses  []Clause
	order    []string
	sliced   bool
	start    int
	stop     int
	step     int
	err      error
}

func NewMemorySet(records []Record) *MemorySet {
	return &MemorySet{records: records}
}

func (s *MemorySet) clone() *MemorySet {
	dup := *s
	dup.clauses = append([]Clause(nil), s.clauses...)
	dup.order = append([]string(nil), s.order...)
	return &dup
}

func (s *MemorySet) Filter(clause Clause) DataSet {
	dup := s.clone()
	dup.clauses = append(dup.clauses, clause)
	return dup
}

func (s *MemorySet) Order(fields ...string) DataSet {
	dup := s.clone()
	dup.order = append(dup.order, fields...)
	return dup
}

func (s *MemorySet) Slice(start, stop, step int) DataSet {
	dup := s.clone()
	dup.sliced = true
	dup.start = start
	dup.stop = stop
	dup.step = step
	return dup
}

func (s *MemorySet) Count() (int, error) {
	records, err := s.All()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *MemorySet) One() (Record, error) {
	records, err := s.All()
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, ErrNoItem
	case 1:
		return records[0], nil
	default:
		return nil, ErrMultipleItems
	}
}

func (s *MemorySet) All() ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		keep := true
		for _, clause := range s.clauses {
			if !matchClause(rec, clause) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, rec)
		}
	}

	if len(s.order) > 0 && len(out) > 0 {
		for _, field := range s.order {
			name := strings.TrimPrefix(field, "-")
			if !anyHasField(out, name) {
				return nil, fmt.Errorf("unknown order field %q", name)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			for _, field := range s.order {
				name, desc := field, false
				if strings.HasPrefix(field, "-") {
					name, desc = field[1:], true
				}
				cmp := compareValues(out[i][name], out[j][name])
				if cmp == 0 {
					continue
				}
				if desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if s.sliced {
		out = sliceRecords(out, s.start, s.stop, s.step)
	}
	return out, nil
}

// MatchAll keeps records whose list attribute named by definition contains
// every one of values. An absent or empty list never matches.
func (s *MemorySet) MatchAll(definition string, values []string) (DataSet, error) {
	matched := []Record{}
	records, err := s.All()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		stored := StringList(rec[definition])
		hits := 0
		for _, v := range values {
			for _, have := range stored {
				if have == v {
					hits++
					break
				}
			}
		}
		if hits == len(values) {
			matched = append(matched, rec)
		}
	}
	return NewMemorySet(matched), nil
}

func sliceRecords(records []Record, start, stop, step int) []Record {
	if step < 1 {
		step = 1
	}
	if start == NoBound || start < 0 {
		start = 0
	}
	if stop == NoBound || stop > len(records) {
		stop = len(records)
	}
	if start >= stop {
		return []Record{}
	}
	out := make([]Record, 0, (stop-start+step-1)/step)
	for i := start; i < stop; i += step {
		out = append(out, records[i])
	}
	return out
}

func matchClause(rec Record, clause Clause) bool {
	for _, cond := range clause.Any {
		if matchCond(rec, cond) {
			return true
		}
	}
	return false
}

func matchCond(rec Record, cond Cond) bool {
	value, ok := rec[cond.Field]
	switch cond.Op {
	case OpIsNull:
		if !ok || value == nil {
			return true
		}
		return len(StringList(value)) == 0 && valueString(value) == ""
	case OpEq:
		return ok && valueString(value) == cond.Value
	case OpIEq:
		return ok && strings.EqualFold(valueString(value), cond.Value)
	case OpIContains:
		return ok && strings.Contains(strings.ToLower(valueString(value)), strings.ToLower(cond.Value))
	}
	return false
}

func anyHasField(records []Record, field string) bool {
	for _, rec := range records {
		if _, ok := rec[field]; ok {
			return true
		}
	}
	return false
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(valueString(a), valueString(b))
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}
