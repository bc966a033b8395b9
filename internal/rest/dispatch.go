package rest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
)

// Default query parameter names. Resources enable a parameter by naming
// it in their Config; an empty name disables the feature.
const (
	DefaultFieldParam = "field"
	DefaultOrderParam = "order"
	DefaultSliceParam = "slice"
)

// OpMode says how one CRUD operation is provided.
type OpMode int

const (
	OpDisabled OpMode = iota
	OpDefault
	OpCustom
)

// Operation configures one CRUD operation. Handler is required for
// OpCustom and ignored otherwise.
type Operation struct {
	Mode    OpMode
	Handler func(ctx *Context) (any, error)
}

// Source is the injected data-access capability a record-backed resource
// dispatches against.
type Source interface {
	// List returns the plural data set narrowed by the request's path
	// constraints.
	List(ctx *Context) (DataSet, error)
	// Item returns the uniquely addressed record, or ErrNoItem.
	Item(ctx *Context) (Record, error)
	// Unique reports whether a constraint field uniquely identifies a
	// record.
	Unique(field string) bool
	// Insert persists a brand-new record and returns it with its key set.
	Insert(ctx *Context, rec Record) (Record, error)
	// Save persists changes to an existing record.
	Save(ctx *Context, rec Record) (Record, error)
	// Delete destroys the given record or records. Runs strictly after
	// the response content has been captured.
	Delete(ctx *Context, data any) error
}

// Config is the declarative surface of one resource. Build resolves it
// once into a Resource; nothing is inspected per request.
type Config struct {
	Name string

	// KeyField is the unique-key field, never client-settable.
	KeyField string
	// TypeName and TypeDescription form the fallback representation used
	// when no output fields are declared.
	TypeName        string
	TypeDescription string

	Fields       []string
	Exclude      []string
	ExcludeInput []string

	Coerce    map[string]Coercer
	CleanBody func(ctx *Context) error

	Filters map[string]FilterSpec

	// FieldParam, OrderParam and SliceParam name the query parameters for
	// field selection, ordering and slicing. Empty disables the feature.
	FieldParam string
	OrderParam string
	SliceParam string

	Create Operation
	Read   Operation
	Update Operation
	Delete Operation

	Source Source

	// Debug attaches the backing-store query log to responses.
	Debug bool
}

// Resource is a built, dispatchable handler for one resource type.
type Resource struct {
	cfg       Config
	policy    *FieldPolicy
	validator *Validator
	filters   []resolvedFilter
	allowed   []string
	ops       map[string]Operation
}

var verbOps = map[string]string{
	http.MethodPost:   "create",
	http.MethodGet:    "read",
	http.MethodPut:    "update",
	http.MethodDelete: "delete",
}

// Build resolves a Config into a Resource. Configuration problems
// (ambiguous filters, custom operations without handlers, default
// operations without a source) are fatal here, not per request.
func Build(cfg Config) (*Resource, error) {
	r := &Resource{
		cfg:    cfg,
		policy: NewFieldPolicy(cfg.Fields, cfg.Exclude, cfg.ExcludeInput, cfg.KeyField),
		ops: map[string]Operation{
			"create": cfg.Create,
			"read":   cfg.Read,
			"update": cfg.Update,
			"delete": cfg.Delete,
		},
	}
	r.validator = &Validator{Policy: r.policy, Coerce: cfg.Coerce, Clean: cfg.CleanBody}

	for name, op := range r.ops {
		switch op.Mode {
		case OpCustom:
			if op.Handler == nil {
				return nil, fmt.Errorf("resource %q: %s is custom but has no handler", cfg.Name, name)
			}
		case OpDefault:
			if cfg.Source == nil {
				return nil, fmt.Errorf("resource %q: %s uses the default implementation but no source is configured", cfg.Name, name)
			}
		}
	}

	params := make([]string, 0, len(cfg.Filters))
	for param := range cfg.Filters {
		params = append(params, param)
	}
	sort.Strings(params)
	for _, param := range params {
		resolved, err := resolveFilter(param, cfg.Filters[param])
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", cfg.Name, err)
		}
		r.filters = append(r.filters, resolved)
	}

	for verb, name := range verbOps {
		if r.ops[name].Mode != OpDisabled {
			r.allowed = append(r.allowed, verb)
		}
	}
	sort.Strings(r.allowed)
	return r, nil
}

// Allowed returns the permitted HTTP verbs for this resource.
func (r *Resource) Allowed() []string {
	return append([]string(nil), r.allowed...)
}

type dispatchState int

const (
	stateRouting dispatchState = iota
	stateValidating
	stateExecuting
	stateEnveloping
	stateSlicing
	stateDone
	stateError
)

type dispatch struct {
	res      *Resource
	ctx      *Context
	env      *Envelope
	op       string
	singular bool
	result   any
	toDelete any
	err      error
}

// Dispatch runs one request through the pipeline: Routing → Validating →
// Executing → Enveloping → Slicing → Done, with Error absorbing failures
// from any stage.
func (r *Resource) Dispatch(ctx *Context) (*Envelope, error) {
	d := &dispatch{res: r, ctx: ctx, env: &Envelope{}}
	state := stateRouting
	for {
		switch state {
		case stateRouting:
			state = d.route()
		case stateValidating:
			state = d.validateBody()
		case stateExecuting:
			state = d.execute()
		case stateEnveloping:
			state = d.envelope()
		case stateSlicing:
			state = d.slice()
		case stateDone:
			if err := d.finish(); err != nil {
				d.err = err
				state = stateError
				continue
			}
			return d.env, nil
		case stateError:
			return nil, d.classify()
		}
	}
}

func (d *dispatch) fail(err error) dispatchState {
	d.err = err
	return stateError
}

func (d *dispatch) route() dispatchState {
	op, known := verbOps[d.ctx.Verb]
	if !known || d.res.ops[op].Mode == OpDisabled {
		return d.fail(NotAddressableError{Verb: d.ctx.Verb, Allowed: d.res.allowed})
	}
	d.op = op
	d.singular = d.isSingular()

	// Creating "over" an existing singular resource is nonsensical.
	if op == "create" && d.singular && d.res.cfg.Source != nil {
		if _, err := d.res.cfg.Source.Item(d.ctx); err == nil {
			allowed := []string{}
			for _, verb := range d.res.allowed {
				if verb != http.MethodPost {
					allowed = append(allowed, verb)
				}
			}
			return d.fail(NotAddressableError{Verb: d.ctx.Verb, Allowed: allowed})
		}
	}
	return stateValidating
}

// isSingular checks whether the path constraints uniquely identify one
// record. Re-run by data lookups, since a client-supplied unique-field
// constraint can force singular mode.
func (d *dispatch) isSingular() bool {
	if d.res.cfg.Source == nil {
		return false
	}
	for field := range d.ctx.Constraints {
		if d.res.cfg.Source.Unique(field) {
			return true
		}
	}
	return false
}

func (d *dispatch) validateBody() dispatchState {
	if d.op != "create" && d.op != "update" {
		return stateExecuting
	}

	var current any
	if d.op == "update" {
		cur, err := d.currentData()
		if err != nil {
			return d.fail(err)
		}
		current = cur
	}
	if err := d.res.validator.Validate(d.ctx, current); err != nil {
		return d.fail(err)
	}
	return stateExecuting
}

// currentData fetches what an update addresses: one record in singular
// mode, the full matched batch otherwise.
func (d *dispatch) currentData() (any, error) {
	src := d.res.cfg.Source
	if src == nil {
		return nil, nil
	}
	if d.isSingular() {
		return src.Item(d.ctx)
	}
	ds, err := src.List(d.ctx)
	if err != nil {
		return nil, err
	}
	return ds.All()
}

func (d *dispatch) execute() dispatchState {
	op := d.res.ops[d.op]
	if op.Mode == OpCustom {
		result, err := op.Handler(d.ctx)
		if err != nil {
			return d.fail(err)
		}
		d.result = result
		if d.op == "delete" {
			d.toDelete = result
		}
		return stateEnveloping
	}

	src := d.res.cfg.Source
	var err error
	switch d.op {
	case "create":
		d.result, err = d.executeCreate(src)
	case "read":
		d.result, err = d.data(src)
	case "update":
		d.result, err = d.executeUpdate(src)
	case "delete":
		d.result, err = d.data(src)
		d.toDelete = d.result
	}
	if err != nil {
		return d.fail(err)
	}
	return stateEnveloping
}

func (d *dispatch) executeCreate(src Source) (any, error) {
	rec, ok := d.ctx.Body.(Record)
	if !ok {
		return nil, ValidationError{Msg: "a create must carry a single record"}
	}
	return src.Insert(d.ctx, rec)
}

func (d *dispatch) executeUpdate(src Source) (any, error) {
	switch body := d.ctx.Body.(type) {
	case Record:
		return src.Save(d.ctx, body)
	case []Record:
		saved := make([]Record, 0, len(body))
		for _, rec := range body {
			out, err := src.Save(d.ctx, rec)
			if err != nil {
				return nil, err
			}
			saved = append(saved, out)
		}
		return saved, nil
	case nil:
		// Bodyless update is legal; there is nothing to persist.
		return d.data(src)
	}
	return nil, ValidationError{Msg: "malformed body"}
}

// data returns the addressed item or the matched data set, re-checking
// singular mode per operation.
func (d *dispatch) data(src Source) (any, error) {
	if d.isSingular() {
		return src.Item(d.ctx)
	}
	return src.List(d.ctx)
}

func (d *dispatch) envelope() dispatchState {
	d.env.Data = d.result

	// Filtering narrows before ordering sorts; only read and delete carry
	// collection views worth shaping.
	if d.op == "read" || d.op == "delete" {
		if ds, ok := d.env.Data.(DataSet); ok {
			shaped, err := applyFilters(ds, d.res.filters, d.ctx.Query)
			if err != nil {
				return d.fail(err)
			}
			shaped = applyOrder(shaped, d.res.cfg.OrderParam, d.ctx.Query)
			d.env.Data = shaped
			if d.toDelete != nil {
				d.toDelete = shaped
			}
		}
	}
	return stateSlicing
}

func (d *dispatch) slice() dispatchState {
	if d.res.cfg.SliceParam != "" {
		applySlice(d.env, d.ctx.QueryValue(d.res.cfg.SliceParam))
	}
	return stateDone
}

// finish materializes the response content, then performs deferred
// destructive work. Deletion runs strictly after the content is captured
// so it never races with serialization reads of the same data.
func (d *dispatch) finish() error {
	if ds, ok := d.env.Data.(DataSet); ok {
		records, err := ds.All()
		if err != nil {
			return err
		}
		d.env.Data = records
	}

	if d.op == "delete" && d.toDelete != nil && d.res.cfg.Source != nil {
		deleted := d.toDelete
		if _, isSet := deleted.(DataSet); isSet {
			deleted = d.env.Data
		}
		if err := d.res.cfg.Source.Delete(d.ctx, deleted); err != nil {
			return err
		}
	}

	if d.res.cfg.Debug {
		d.env.Debug = d.ctx.Log.payload()
	}
	return nil
}

// classify converts whatever the pipeline failed with into the reportable
// error taxonomy. Data-layer details never leak beyond their string form.
func (d *dispatch) classify() error {
	err := d.err
	switch {
	case IsValidation(err), IsNotAddressable(err), IsGone(err), IsNotFound(err):
		return err
	case errors.Is(err, ErrNoItem), errors.Is(err, sql.ErrNoRows):
		return GoneError{Resource: d.res.cfg.Name, Err: err}
	case errors.Is(err, ErrMultipleItems):
		return ValidationError{Msg: "constraints match more than one item", Err: err}
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ValidationError{Msg: "duplicate entry", Err: err}
	}
	return UnknownError{Err: err}
}

// Handler adapts the resource to a gin route. The route's path parameters
// become the request's constraints, so mount item routes with the key
// field as the parameter name, e.g. group.GET("/:id", res.Handler()).
func (r *Resource) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := &Context{
			Verb:        c.Request.Method,
			Constraints: map[string]string{},
			Query:       c.Request.URL.Query(),
			Log:         &QueryLog{},
		}
		for _, p := range c.Params {
			ctx.Constraints[p.Key] = p.Value
		}

		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			body, err := readBody(c)
			if err != nil {
				RespondError(c, ValidationError{Msg: "malformed body", Err: err})
				return
			}
			ctx.Body = body
		}

		env, err := r.Dispatch(ctx)
		if err != nil {
			RespondError(c, err)
			return
		}

		selection := Selection{
			Fields:          r.policy.AllowedOutput(ctx.QueryValues(r.cfg.FieldParam)),
			Policy:          r.policy,
			KeyField:        r.cfg.KeyField,
			TypeName:        r.cfg.TypeName,
			TypeDescription: r.cfg.TypeDescription,
		}
		body, contentType, err := EmitterFor(c.Query("format")).Emit(env, selection)
		if err != nil {
			RespondError(c, UnknownError{Err: err})
			return
		}

		status := http.StatusOK
		if c.Request.Method == http.MethodPost {
			status = http.StatusCreated
		}
		c.Data(status, contentType, body)
	}
}

func readBody(c *gin.Context) (any, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	return body, nil
}
