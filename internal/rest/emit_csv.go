package rest

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// csvEmitter renders record data as CSV, one row per record, with the
// selected fields as columns. The optional total is carried in a trailing
// comment-style footer column-free row to keep the body parseable.
type csvEmitter struct{}

func (csvEmitter) Emit(env *Envelope, sel Selection) ([]byte, string, error) {
	columns, rows := tabulate(env.Data, sel)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	body := buf.Bytes()
	if env.Total != nil {
		body = append(body, []byte("# total "+strconv.Itoa(*env.Total)+"\n")...)
	}
	return body, "text/csv; charset=utf-8", nil
}
