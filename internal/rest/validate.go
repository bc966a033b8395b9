package rest

import "net/http"

// Coercer converts one raw body value into its stored form.
type Coercer func(any) (any, error)

// Validator cleans and type-coerces an incoming request body, replacing
// it with its domain-record form. Create and update differ: a create
// wraps the cleaned fields into a brand-new unsaved Record, an update
// sets each cleaned field on the current record (or on every record of a
// batch).
type Validator struct {
	Policy *FieldPolicy
	Coerce map[string]Coercer
	// Clean is an optional whole-body hook run after field filtering and
	// coercion, in the manner of a form-level clean step.
	Clean func(ctx *Context) error
}

// Validate mutates ctx.Body in place or returns a ValidationError. An
// absent body is fatal on create only; other verbs may legally carry
// none.
func (v *Validator) Validate(ctx *Context, current any) error {
	if ctx.Body == nil {
		if ctx.Verb == http.MethodPost {
			return ValidationError{Msg: "a create must carry data"}
		}
		return nil
	}

	raw, ok := ctx.Body.(map[string]any)
	if !ok {
		if rec, isRec := ctx.Body.(Record); isRec {
			raw = map[string]any(rec)
		} else {
			return ValidationError{Msg: "malformed body"}
		}
	}

	cleaned := make(map[string]any, len(raw))
	fieldErrs := map[string]string{}
	for field, value := range raw {
		if v.Policy != nil && !v.Policy.InputAllowed(field) {
			continue
		}
		if coerce, has := v.Coerce[field]; has {
			coerced, err := coerce(value)
			if err != nil {
				fieldErrs[field] = err.Error()
				continue
			}
			value = coerced
		}
		cleaned[field] = value
	}
	if len(fieldErrs) > 0 {
		return ValidationError{Msg: "invalid field values", Fields: fieldErrs}
	}

	switch cur := current.(type) {
	case nil:
		ctx.Body = Record(cleaned)
	case Record:
		merged := make(Record, len(cur)+len(cleaned))
		for k, val := range cur {
			merged[k] = val
		}
		for k, val := range cleaned {
			merged[k] = val
		}
		ctx.Body = merged
	case []Record:
		batch := make([]Record, 0, len(cur))
		for _, rec := range cur {
			merged := make(Record, len(rec)+len(cleaned))
			for k, val := range rec {
				merged[k] = val
			}
			for k, val := range cleaned {
				merged[k] = val
			}
			batch = append(batch, merged)
		}
		ctx.Body = batch
	default:
		ctx.Body = Record(cleaned)
	}

	if v.Clean != nil {
		if err := v.Clean(ctx); err != nil {
			if IsValidation(err) {
				return err
			}
			return ValidationError{Msg: err.Error(), Err: err}
		}
	}
	return nil
}
