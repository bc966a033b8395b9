package rest

import (
	"errors"
	"net/url"
)

// Record is a single domain entity, field name to value.
type Record map[string]any

// ErrNoItem is returned by DataSet.One and Source.Item when no record
// matches the constraints.
var ErrNoItem = errors.New("no matching item")

// ErrMultipleItems is returned by DataSet.One when the constraints match
// more than one record.
var ErrMultipleItems = errors.New("multiple matching items")

// ErrNotSliceable is returned when slicing is requested on data that does
// not support it.
var ErrNotSliceable = errors.New("data is not sliceable")

// Op is a predicate operator.
type Op int

const (
	OpEq        Op = iota // exact match
	OpIEq                 // case-insensitive exact match
	OpIContains           // case-insensitive substring match
	OpIsNull              // field is absent/null
)

// Cond is one field predicate.
type Cond struct {
	Field string
	Op    Op
	Value string
}

// Clause is an OR-group of conditions. Chained Filter calls AND clauses
// together.
type Clause struct {
	Any []Cond
}

func Eq(field, value string) Clause {
	return Clause{Any: []Cond{{Field: field, Op: OpEq, Value: value}}}
}

func IEq(field, value string) Clause {
	return Clause{Any: []Cond{{Field: field, Op: OpIEq, Value: value}}}
}

func IContains(field, value string) Clause {
	return Clause{Any: []Cond{{Field: field, Op: OpIContains, Value: value}}}
}

func IsNull(field string) Clause {
	return Clause{Any: []Cond{{Field: field, Op: OpIsNull}}}
}

func AnyOf(conds ...Cond) Clause {
	return Clause{Any: conds}
}

// NoBound marks an absent start or stop in a slice.
const NoBound = -1

// DataSet is a lazily evaluated ordered collection of Records. Filter,
// Order and Slice return derived sets without forcing materialization;
// Count, All and One evaluate.
type DataSet interface {
	Filter(clause Clause) DataSet
	Order(fields ...string) DataSet
	Slice(start, stop, step int) DataSet
	Count() (int, error)
	All() ([]Record, error)
	One() (Record, error)
}

// AllMatcher is an optional DataSet capability used by the contains-all
// filter: keep only records related, through definition's association
// path, to every one of values.
type AllMatcher interface {
	MatchAll(definition string, values []string) (DataSet, error)
}

// Envelope is the in-progress response built up across pipeline stages.
type Envelope struct {
	Data  any            `json:"data"`
	Total *int           `json:"total,omitempty"`
	Debug map[string]any `json:"debug,omitempty"`
}

// Context carries one request through the dispatcher. Immutable once
// dispatch begins, except Body which the validator may replace with its
// cleaned form.
type Context struct {
	Verb        string
	Constraints map[string]string
	Query       url.Values
	Body        any
	Log         *QueryLog
}

// QueryValues returns all values supplied for a query parameter.
func (c *Context) QueryValues(name string) []string {
	if c.Query == nil {
		return nil
	}
	return c.Query[name]
}

// QueryValue returns the first value supplied for a query parameter.
func (c *Context) QueryValue(name string) string {
	if c.Query == nil {
		return ""
	}
	return c.Query.Get(name)
}
