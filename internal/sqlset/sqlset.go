// Package sqlset backs the toolkit's DataSet contract with MySQL tables.
// Derived sets only accumulate SQL fragments; nothing hits the database
// until Count, All or One evaluates.
package sqlset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"restkit/internal/rest"
)

// Assoc describes an association table used by the contains-all lookup:
// parent records relate to values through one row per membership.
type Assoc struct {
	Table     string
	ParentCol string
	ValueCol  string
}

// Schema declares the table a Set reads from. Columns is the identifier
// allow-list: conditions and ordering may only name what it lists.
type Schema struct {
	Table   string
	Key     string
	Columns []string
	// Unique lists columns, beyond Key, that uniquely identify a record.
	Unique []string
	// Assocs maps association paths (as used in filter definitions, e.g.
	// "memberships__list") to their association tables.
	Assocs map[string]Assoc
}

func (s Schema) hasColumn(name string) bool {
	if name == s.Key {
		return true
	}
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

type allMatch struct {
	assoc  Assoc
	values []string
}

// Set is a lazily evaluated MySQL-backed DataSet.
type Set struct {
	db     *sql.DB
	schema Schema
	log    *rest.QueryLog

	clauses []rest.Clause
	matches []allMatch
	order   []string
	sliced  bool
	start   int
	stop    int
	step    int
	err     error
}

// New returns a Set over the schema's table. The query log may be nil.
func New(db *sql.DB, schema Schema, log *rest.QueryLog) *Set {
	return &Set{db: db, schema: schema, log: log}
}

func (s *Set) clone() *Set {
	dup := *s
	dup.clauses = append([]rest.Clause(nil), s.clauses...)
	dup.matches = append([]allMatch(nil), s.matches...)
	dup.order = append([]string(nil), s.order...)
	return &dup
}

func (s *Set) Filter(clause rest.Clause) rest.DataSet {
	dup := s.clone()
	dup.clauses = append(dup.clauses, clause)
	return dup
}

func (s *Set) Order(fields ...string) rest.DataSet {
	dup := s.clone()
	dup.order = append(dup.order, fields...)
	return dup
}

func (s *Set) Slice(start, stop, step int) rest.DataSet {
	dup := s.clone()
	dup.sliced = true
	dup.start = start
	dup.stop = stop
	dup.step = step
	return dup
}

// MatchAll keeps records related, through the association registered for
// definition, to every one of values: the association rows are grouped
// per parent and only parents whose distinct match count equals
// len(values) survive.
func (s *Set) MatchAll(definition string, values []string) (rest.DataSet, error) {
	assoc, ok := s.schema.Assocs[definition]
	if !ok {
		return nil, fmt.Errorf("no association registered for %q on table %s", definition, s.schema.Table)
	}
	dup := s.clone()
	dup.matches = append(dup.matches, allMatch{assoc: assoc, values: values})
	return dup, nil
}

func (s *Set) where() (string, []any, error) {
	var parts []string
	var args []any

	for _, clause := range s.clauses {
		var ors []string
		for _, cond := range clause.Any {
			frag, condArgs, err := s.condSQL(cond)
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, frag)
			args = append(args, condArgs...)
		}
		if len(ors) == 1 {
			parts = append(parts, ors[0])
		} else if len(ors) > 1 {
			parts = append(parts, "("+strings.Join(ors, " OR ")+")")
		}
	}

	for _, m := range s.matches {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(m.values)), ",")
		parts = append(parts, fmt.Sprintf(
			"%s IN (SELECT %s FROM %s WHERE %s IN (%s) GROUP BY %s HAVING COUNT(DISTINCT %s) = ?)",
			s.schema.Key, m.assoc.ParentCol, m.assoc.Table, m.assoc.ValueCol,
			placeholders, m.assoc.ParentCol, m.assoc.ValueCol,
		))
		for _, v := range m.values {
			args = append(args, v)
		}
		args = append(args, len(m.values))
	}

	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func (s *Set) condSQL(cond rest.Cond) (string, []any, error) {
	if assoc, ok := s.schema.Assocs[cond.Field]; ok {
		if cond.Op != rest.OpIsNull {
			return "", nil, fmt.Errorf("association %q only supports the null lookup", cond.Field)
		}
		return fmt.Sprintf("%s NOT IN (SELECT %s FROM %s)",
			s.schema.Key, assoc.ParentCol, assoc.Table), nil, nil
	}
	if !s.schema.hasColumn(cond.Field) {
		return "", nil, fmt.Errorf("unknown column %q on table %s", cond.Field, s.schema.Table)
	}
	switch cond.Op {
	case rest.OpEq:
		return cond.Field + " = ?", []any{cond.Value}, nil
	case rest.OpIEq:
		return "LOWER(" + cond.Field + ") = LOWER(?)", []any{cond.Value}, nil
	case rest.OpIContains:
		return "LOWER(" + cond.Field + ") LIKE ?", []any{"%" + strings.ToLower(cond.Value) + "%"}, nil
	case rest.OpIsNull:
		return cond.Field + " IS NULL", nil, nil
	}
	return "", nil, fmt.Errorf("unsupported operator %d on %q", cond.Op, cond.Field)
}

func (s *Set) orderSQL() (string, error) {
	if len(s.order) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(s.order))
	for _, field := range s.order {
		name, dir := field, "ASC"
		if strings.HasPrefix(field, "-") {
			name, dir = field[1:], "DESC"
		}
		if !s.schema.hasColumn(name) {
			return "", fmt.Errorf("unknown order column %q on table %s", name, s.schema.Table)
		}
		parts = append(parts, name+" "+dir)
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func (s *Set) limitSQL() string {
	if !s.sliced {
		return ""
	}
	start := s.start
	if start == rest.NoBound || start < 0 {
		start = 0
	}
	if s.stop == rest.NoBound {
		// MySQL requires a LIMIT before OFFSET.
		return " LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(start)
	}
	window := s.stop - start
	if window < 0 {
		window = 0
	}
	return " LIMIT " + strconv.Itoa(window) + " OFFSET " + strconv.Itoa(start)
}

func (s *Set) Count() (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	where, args, err := s.where()
	if err != nil {
		return 0, err
	}
	query := "SELECT COUNT(*) FROM " + s.schema.Table + where
	if s.sliced {
		query = "SELECT COUNT(*) FROM (SELECT " + s.schema.Key + " FROM " +
			s.schema.Table + where + s.limitSQL() + ") AS bounded"
	}
	s.log.Record(query)
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, err
	}
	if s.sliced && s.step > 1 {
		n = (n + s.step - 1) / s.step
	}
	return n, nil
}

func (s *Set) All() ([]rest.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	where, args, err := s.where()
	if err != nil {
		return nil, err
	}
	orderBy, err := s.orderSQL()
	if err != nil {
		return nil, err
	}

	columns := append([]string{s.schema.Key}, s.schema.Columns...)
	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + s.schema.Table +
		where + orderBy + s.limitSQL()
	s.log.Record(query)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []rest.Record{}
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(rest.Record, len(columns))
		for i, col := range columns {
			rec[col] = normalize(raw[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// LIMIT/OFFSET cannot express a stride; the window is already
	// bounded, so applying the step here stays cheap.
	if s.sliced && s.step > 1 {
		strided := make([]rest.Record, 0, (len(out)+s.step-1)/s.step)
		for i := 0; i < len(out); i += s.step {
			strided = append(strided, out[i])
		}
		out = strided
	}
	return out, nil
}

func (s *Set) One() (rest.Record, error) {
	bounded := s.clone()
	if !bounded.sliced {
		bounded.sliced = true
		bounded.start = 0
		bounded.stop = 2
		bounded.step = 1
	}
	records, err := bounded.All()
	if err != nil {
		return nil, err
	}
	switch len(records) {
	case 0:
		return nil, rest.ErrNoItem
	case 1:
		return records[0], nil
	default:
		return nil, rest.ErrMultipleItems
	}
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

// bindValue converts a record value into a driver-bindable one. List and
// map attributes are stored as JSON text, the usual form for list
// columns.
func bindValue(v any) any {
	switch v.(type) {
	case []string, []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}
	return v
}
