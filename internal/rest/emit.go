package rest

import "encoding/json"

// Selection carries the resolved per-request field selection into the
// serialization boundary, plus the metadata needed for the fallback
// record representation.
type Selection struct {
	Fields          []string
	Policy          *FieldPolicy
	KeyField        string
	TypeName        string
	TypeDescription string
}

// Emitter renders a finished envelope into response bytes. One emitter
// per output format; all of them must honor the field selection.
type Emitter interface {
	Emit(env *Envelope, sel Selection) (body []byte, contentType string, err error)
}

var emitters = map[string]Emitter{
	"json": jsonEmitter{},
	"csv":  csvEmitter{},
	"pdf":  pdfEmitter{},
}

// EmitterFor returns the emitter registered for a format name, falling
// back to JSON.
func EmitterFor(format string) Emitter {
	if e, ok := emitters[format]; ok {
		return e
	}
	return emitters["json"]
}

// RegisterEmitter adds or replaces a format.
func RegisterEmitter(format string, e Emitter) {
	emitters[format] = e
}

type jsonEmitter struct{}

func (jsonEmitter) Emit(env *Envelope, sel Selection) ([]byte, string, error) {
	out := map[string]any{
		"data": applySelection(env.Data, sel),
	}
	if env.Total != nil {
		out["total"] = *env.Total
	}
	if env.Debug != nil {
		out["debug"] = env.Debug
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, "", err
	}
	return body, "application/json; charset=utf-8", nil
}

// applySelection restricts which fields appear in the output,
// recursively. Records without any field selection fall back to the
// generic key/type/description representation, so data never intended to
// be public is not exposed by accident.
func applySelection(data any, sel Selection) any {
	switch t := data.(type) {
	case []Record:
		out := make([]any, 0, len(t))
		for _, rec := range t {
			out = append(out, applySelection(rec, sel))
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, applySelection(item, sel))
		}
		return out
	case Record:
		if len(sel.Fields) == 0 {
			return map[string]any{
				"key":         t[sel.KeyField],
				"type":        sel.TypeName,
				"description": sel.TypeDescription,
			}
		}
		out := make(map[string]any, len(sel.Fields))
		for _, f := range sel.Fields {
			if v, ok := t[f]; ok {
				out[f] = v
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			if fieldSelected(k, sel) {
				out[k] = v
			}
		}
		return out
	}
	return data
}

func fieldSelected(field string, sel Selection) bool {
	if len(sel.Fields) > 0 {
		for _, f := range sel.Fields {
			if f == field {
				return true
			}
		}
		return false
	}
	if sel.Policy != nil {
		return sel.Policy.FieldAllowed(field)
	}
	return true
}

// tabulate flattens envelope data into column names and rows for the
// tabular emitters.
func tabulate(data any, sel Selection) ([]string, [][]string) {
	var records []Record
	switch t := data.(type) {
	case []Record:
		records = t
	case Record:
		records = []Record{t}
	default:
		return nil, nil
	}

	columns := sel.Fields
	if len(columns) == 0 {
		columns = []string{"key", "type", "description"}
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		fields, ok := applySelection(rec, sel).(map[string]any)
		if !ok {
			continue
		}
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, valueString(fields[col]))
		}
		rows = append(rows, row)
	}
	return columns, rows
}
