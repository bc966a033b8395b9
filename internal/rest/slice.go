package rest

import (
	"strconv"
	"strings"
)

// ParseSlice parses a colon-delimited start:stop:step spec. Missing or
// unparsable components are treated as absent: start/stop default to
// NoBound and step to 1. Parsing never fails.
func ParseSlice(spec string) (start, stop, step int) {
	start, stop, step = NoBound, NoBound, 1
	parts := strings.SplitN(spec, ":", 3)
	if v, ok := sliceComponent(parts[0]); ok {
		start = v
	}
	if len(parts) > 1 {
		if v, ok := sliceComponent(parts[1]); ok {
			stop = v
		}
	}
	if len(parts) > 2 {
		if v, ok := sliceComponent(parts[2]); ok && v > 0 {
			step = v
		}
	}
	return start, stop, step
}

func sliceComponent(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// applySlice slices the envelope's data as a view over whatever the
// response currently holds, setting the pre-slice total first if no total
// is present yet. When the data cannot be sliced the envelope is left
// unmodified. Returns whether slicing occurred.
func applySlice(env *Envelope, spec string) bool {
	if strings.TrimSpace(spec) == "" {
		return false
	}
	start, stop, step := ParseSlice(spec)

	setTotal := func(n int) {
		if env.Total == nil {
			env.Total = &n
		}
	}

	switch data := env.Data.(type) {
	case DataSet:
		// The total must reflect the set before the slice narrows it.
		if env.Total == nil {
			n, err := data.Count()
			if err != nil {
				return false
			}
			setTotal(n)
		}
		env.Data = data.Slice(start, stop, step)
		return true
	case []Record:
		setTotal(len(data))
		env.Data = sliceRecords(data, start, stop, step)
		return true
	default:
		return false
	}
}
