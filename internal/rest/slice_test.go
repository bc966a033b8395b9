package rest

import (
	"strconv"
	"testing"
)

func tenRecords() []Record {
	out := make([]Record, 0, 10)
	for i := 0; i < 10; i++ {
		out = append(out, Record{"id": i, "name": "r" + strconv.Itoa(i)})
	}
	return out
}

func TestParseSlice(t *testing.T) {
	cases := []struct {
		spec                string
		start, stop, step int
	}{
		{"2:5", 2, 5, 1},
		{"2:5:2", 2, 5, 2},
		{":5", NoBound, 5, 1},
		{"2:", 2, NoBound, 1},
		{"::3", NoBound, NoBound, 3},
		{"abc:5", NoBound, 5, 1},
		{"2:xyz", 2, NoBound, 1},
		{"", NoBound, NoBound, 1},
		{"1:10:0", 1, 10, 1},
	}
	for _, tc := range cases {
		start, stop, step := ParseSlice(tc.spec)
		if start != tc.start || stop != tc.stop || step != tc.step {
			t.Fatalf("ParseSlice(%q) = %d,%d,%d want %d,%d,%d",
				tc.spec, start, stop, step, tc.start, tc.stop, tc.step)
		}
	}
}

func TestApplySliceWindow(t *testing.T) {
	env := &Envelope{Data: NewMemorySet(tenRecords()).Order("id")}

	if !applySlice(env, "2:5") {
		t.Fatalf("expected slicing to occur")
	}
	if env.Total == nil || *env.Total != 10 {
		t.Fatalf("expected pre-slice total 10, got %v", env.Total)
	}

	records, err := env.Data.(DataSet).All()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []int{2, 3, 4} {
		if records[i]["id"] != want {
			t.Fatalf("position %d: expected id %d, got %v", i, want, records[i]["id"])
		}
	}
}

func TestSliceFullRangeIsIdentity(t *testing.T) {
	records := tenRecords()
	env := &Envelope{Data: records}

	if !applySlice(env, "0:10") {
		t.Fatalf("expected slicing to occur")
	}
	sliced := env.Data.([]Record)
	if len(sliced) != len(records) {
		t.Fatalf("slice(0, count) should equal the set, got %d records", len(sliced))
	}
}

func TestSliceNonNumericStartDoesNotRaise(t *testing.T) {
	env := &Envelope{Data: tenRecords()}

	if !applySlice(env, "junk:4") {
		t.Fatalf("expected slicing with the bad component treated as absent")
	}
	if got := len(env.Data.([]Record)); got != 4 {
		t.Fatalf("expected 4 records, got %d", got)
	}
}

func TestSliceStep(t *testing.T) {
	env := &Envelope{Data: tenRecords()}

	applySlice(env, "0:10:3")
	records := env.Data.([]Record)
	want := []int{0, 3, 6, 9}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, id := range want {
		if records[i]["id"] != id {
			t.Fatalf("position %d: expected id %d, got %v", i, id, records[i]["id"])
		}
	}
}

func TestSliceNonSliceableLeavesEnvelopeAlone(t *testing.T) {
	single := Record{"id": 1}
	env := &Envelope{Data: single}

	if applySlice(env, "0:5") {
		t.Fatalf("slicing a single record should not occur")
	}
	if env.Total != nil {
		t.Fatalf("total should have been rolled back, got %v", *env.Total)
	}
	if _, ok := env.Data.(Record); !ok {
		t.Fatalf("data should be unmodified")
	}
}

func TestSliceNoParamIsNoop(t *testing.T) {
	env := &Envelope{Data: tenRecords()}
	if applySlice(env, "") {
		t.Fatalf("no slice parameter should report no slicing")
	}
	if env.Total != nil {
		t.Fatalf("total should not be set without slicing")
	}
}

func TestSliceKeepsExistingTotal(t *testing.T) {
	total := 42
	env := &Envelope{Data: tenRecords(), Total: &total}

	applySlice(env, "0:2")
	if env.Total == nil || *env.Total != 42 {
		t.Fatalf("existing total must not be overwritten, got %v", env.Total)
	}
}
