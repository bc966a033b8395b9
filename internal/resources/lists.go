package resources

import (
	"database/sql"

	"restkit/internal/rest"
	"restkit/internal/sqlset"
)

// Lists builds the mailing-list resource. Deletion is disabled: lists are
// only ever archived, so DELETE reports method-not-allowed with the
// remaining verbs.
func Lists(db *sql.DB, debug bool) (*rest.Resource, error) {
	source := &sqlset.Source{
		DB: db,
		Schema: sqlset.Schema{
			Table:   "lists",
			Key:     "id",
			Columns: []string{"name", "description", "archived"},
		},
	}

	return rest.Build(rest.Config{
		Name:            "lists",
		KeyField:        "id",
		TypeName:        "list",
		TypeDescription: "mailing list",

		Fields: []string{"id", "name", "description", "archived"},

		Filters: map[string]rest.FilterSpec{
			"q":    {Fields: []string{"name", "description"}},
			"name": {Definition: "name__isearch"},
		},

		FieldParam: rest.DefaultFieldParam,
		OrderParam: rest.DefaultOrderParam,
		SliceParam: rest.DefaultSliceParam,

		Create: rest.Operation{Mode: rest.OpDefault},
		Read:   rest.Operation{Mode: rest.OpDefault},
		Update: rest.Operation{Mode: rest.OpDefault},
		Delete: rest.Operation{Mode: rest.OpDisabled},

		Source: source,
		Debug:  debug,
	})
}
