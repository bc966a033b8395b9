package rest

import (
	"bytes"
	"strconv"

	"github.com/phpdave11/gofpdf"
)

// pdfEmitter renders record data as a simple PDF table with the selected
// fields as columns.
type pdfEmitter struct{}

func (pdfEmitter) Emit(env *Envelope, sel Selection) ([]byte, string, error) {
	columns, rows := tabulate(env.Data, sel)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	width := 270.0 / float64(maxInt(len(columns), 1))

	pdf.SetFont("Helvetica", "B", 10)
	for _, col := range columns {
		pdf.CellFormat(width, 8, col, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for _, cell := range row {
			pdf.CellFormat(width, 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if env.Total != nil {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 6, "total: "+strconv.Itoa(*env.Total))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "application/pdf", nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
