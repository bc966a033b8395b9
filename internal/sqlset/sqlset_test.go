package sqlset

import (
	"testing"

	"restkit/internal/rest"

	"github.com/DATA-DOG/go-sqlmock"
)

func widgetSchema() Schema {
	return Schema{
		Table:   "widgets",
		Key:     "id",
		Columns: []string{"name", "color"},
		Assocs: map[string]Assoc{
			"tags__tag": {Table: "widget_tags", ParentCol: "widget_id", ValueCol: "tag_id"},
		},
	}
}

func newMock(t *testing.T) (*Set, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	return New(db, widgetSchema(), &rest.QueryLog{}), mock, func() { db.Close() }
}

func TestAllBuildsFilteredOrderedBoundedQuery(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, color FROM widgets WHERE color = \? ORDER BY id DESC LIMIT 2 OFFSET 1`).
		WithArgs("red").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).
			AddRow(3, "wrench", "red").
			AddRow(1, "anvil", "red"))

	records, err := set.Filter(rest.Eq("color", "red")).Order("-id").Slice(1, 3, 1).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["name"] != "wrench" {
		t.Fatalf("expected wrench first, got %v", records[0]["name"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCaseInsensitiveConditions(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, color FROM widgets WHERE \(LOWER\(name\) = LOWER\(\?\) OR LOWER\(color\) LIKE \?\)`).
		WithArgs("Anvil", "%red%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).AddRow(1, "anvil", "red"))

	clause := rest.AnyOf(
		rest.Cond{Field: "name", Op: rest.OpIEq, Value: "Anvil"},
		rest.Cond{Field: "color", Op: rest.OpIContains, Value: "RED"},
	)
	if _, err := set.Filter(clause).All(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCountBeforeSlice(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM widgets WHERE color = \?`).
		WithArgs("red").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := set.Filter(rest.Eq("color", "red")).Count()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}

func TestCountOfSlicedSetIsBounded(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(SELECT id FROM widgets LIMIT 6 OFFSET 0\) AS bounded`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6))

	n, err := set.Slice(0, 6, 2).Count()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("a step-2 window of 6 holds 3 records, got %d", n)
	}
}

func TestStepAppliedInMemory(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name", "color"})
	for i := 1; i <= 6; i++ {
		rows.AddRow(i, "w", "red")
	}
	mock.ExpectQuery(`SELECT id, name, color FROM widgets LIMIT 6 OFFSET 0`).
		WillReturnRows(rows)

	records, err := set.Slice(0, 6, 2).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected a stride of 3 records, got %d", len(records))
	}
	if records[1]["id"] != int64(3) {
		t.Fatalf("expected ids 1,3,5; got %v", records[1]["id"])
	}
}

func TestMatchAllGroupsAndCounts(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, color FROM widgets WHERE id IN \(SELECT widget_id FROM widget_tags WHERE tag_id IN \(\?,\?\) GROUP BY widget_id HAVING COUNT\(DISTINCT tag_id\) = \?\)`).
		WithArgs("2", "3", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).AddRow(1, "anvil", "red"))

	ds, err := set.MatchAll("tags__tag", []string{"2", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := ds.All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestMatchAllUnknownAssociation(t *testing.T) {
	set, _, done := newMock(t)
	defer done()

	if _, err := set.MatchAll("nope__nope", []string{"1"}); err == nil {
		t.Fatalf("unknown association must error")
	}
}

func TestAssocNullLookup(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, color FROM widgets WHERE id NOT IN \(SELECT widget_id FROM widget_tags\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}).AddRow(4, "plain", ""))

	records, err := set.Filter(rest.IsNull("tags__tag")).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != int64(4) {
		t.Fatalf("expected the untagged widget, got %v", records)
	}
}

func TestUnknownOrderColumnSurfaces(t *testing.T) {
	set, _, done := newMock(t)
	defer done()

	if _, err := set.Order("bogus").All(); err == nil {
		t.Fatalf("unknown order column must surface an error")
	}
}

func TestUnknownFilterColumnSurfaces(t *testing.T) {
	set, _, done := newMock(t)
	defer done()

	if _, err := set.Filter(rest.Eq("bogus", "x")).All(); err == nil {
		t.Fatalf("unknown filter column must surface an error")
	}
}

func TestOneNoRows(t *testing.T) {
	set, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery(`SELECT id, name, color FROM widgets WHERE id = \? LIMIT 2 OFFSET 0`).
		WithArgs("99").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "color"}))

	if _, err := set.Filter(rest.Eq("id", "99")).(*Set).One(); err != rest.ErrNoItem {
		t.Fatalf("expected ErrNoItem, got %v", err)
	}
}
