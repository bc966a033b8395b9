package sqlset

import (
	"database/sql"
	"fmt"
	"strings"

	"restkit/internal/rest"
)

// Source adapts a schema-backed table to the dispatcher's data-access
// contract. Path constraints narrow the set with exact matches.
type Source struct {
	DB     *sql.DB
	Schema Schema
}

func (s *Source) set(ctx *rest.Context) *Set {
	return New(s.DB, s.Schema, ctx.Log)
}

func (s *Source) List(ctx *rest.Context) (rest.DataSet, error) {
	var ds rest.DataSet = s.set(ctx)
	for field, value := range ctx.Constraints {
		if !s.Schema.hasColumn(field) {
			return nil, rest.NotFoundError{Resource: s.Schema.Table}
		}
		ds = ds.Filter(rest.Eq(field, value))
	}
	return ds, nil
}

func (s *Source) Item(ctx *rest.Context) (rest.Record, error) {
	ds, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return ds.One()
}

func (s *Source) Unique(field string) bool {
	if field == s.Schema.Key {
		return true
	}
	for _, u := range s.Schema.Unique {
		if u == field {
			return true
		}
	}
	return false
}

func (s *Source) Insert(ctx *rest.Context, rec rest.Record) (rest.Record, error) {
	columns := []string{}
	args := []any{}
	for _, col := range s.Schema.Columns {
		if v, ok := rec[col]; ok {
			columns = append(columns, col)
			args = append(args, bindValue(v))
		}
	}
	if len(columns) == 0 {
		return nil, rest.ValidationError{Msg: "no settable fields in body"}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Schema.Table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","),
	)
	ctx.Log.Record(query)
	res, err := s.DB.Exec(query, args...)
	if err != nil {
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		rec[s.Schema.Key] = id
	}
	return rec, nil
}

func (s *Source) Save(ctx *rest.Context, rec rest.Record) (rest.Record, error) {
	key, ok := rec[s.Schema.Key]
	if !ok {
		return nil, rest.ValidationError{Msg: "record has no key"}
	}

	sets := []string{}
	args := []any{}
	for _, col := range s.Schema.Columns {
		if v, has := rec[col]; has {
			sets = append(sets, col+" = ?")
			args = append(args, bindValue(v))
		}
	}
	if len(sets) == 0 {
		return rec, nil
	}
	args = append(args, key)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		s.Schema.Table, strings.Join(sets, ", "), s.Schema.Key)
	ctx.Log.Record(query)
	if _, err := s.DB.Exec(query, args...); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Source) Delete(ctx *rest.Context, data any) error {
	var keys []any
	switch t := data.(type) {
	case rest.Record:
		if k, ok := t[s.Schema.Key]; ok {
			keys = append(keys, k)
		}
	case []rest.Record:
		for _, rec := range t {
			if k, ok := rec[s.Schema.Key]; ok {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		s.Schema.Table, s.Schema.Key,
		strings.TrimSuffix(strings.Repeat("?,", len(keys)), ","),
	)
	ctx.Log.Record(query)
	_, err := s.DB.Exec(query, keys...)
	return err
}
