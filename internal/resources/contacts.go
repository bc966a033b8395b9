// Package resources declares the resource handlers served by this
// application, built once at startup from declarative configs.
package resources

import (
	"database/sql"
	"fmt"

	"restkit/internal/rest"
	"restkit/internal/sqlset"
)

// Contacts builds the address-book contact resource. It exercises every
// filter kind: multi-field search (q), case-insensitive exact (name),
// list containment (email over the JSON emails column) and
// belongs-to-all (list over the memberships association).
func Contacts(db *sql.DB, debug bool) (*rest.Resource, error) {
	source := &sqlset.Source{
		DB: db,
		Schema: sqlset.Schema{
			Table:   "contacts",
			Key:     "id",
			Columns: []string{"first_name", "last_name", "emails", "phone", "status"},
			Assocs: map[string]sqlset.Assoc{
				"memberships__list": {
					Table:     "memberships",
					ParentCol: "contact_id",
					ValueCol:  "list_id",
				},
			},
		},
	}

	return rest.Build(rest.Config{
		Name:            "contacts",
		KeyField:        "id",
		TypeName:        "contact",
		TypeDescription: "address book contact",

		Fields: []string{"id", "first_name", "last_name", "emails", "phone", "status"},

		Coerce: map[string]rest.Coercer{
			"emails": coerceStringList,
		},

		Filters: map[string]rest.FilterSpec{
			"q":      {Fields: []string{"first_name", "last_name"}},
			"name":   {Definition: "last_name__isearch"},
			"email":  {Definition: "emails__in_list"},
			"list":   {Definition: "memberships__list__in_all"},
			"status": {Definition: "status"},
		},

		FieldParam: rest.DefaultFieldParam,
		OrderParam: rest.DefaultOrderParam,
		SliceParam: rest.DefaultSliceParam,

		Create: rest.Operation{Mode: rest.OpDefault},
		Read:   rest.Operation{Mode: rest.OpDefault},
		Update: rest.Operation{Mode: rest.OpDefault},
		Delete: rest.Operation{Mode: rest.OpDefault},

		Source: source,
		Debug:  debug,
	})
}

func coerceStringList(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return t, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings")
}
