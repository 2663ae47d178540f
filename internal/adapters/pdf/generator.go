// Package pdf renders a printable codebook for one survey year.
// The codebook lists every dictionary entry in record order with its
// offsets, storage type and implied decimal places.
package pdf

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/csg33k/cps-dct/internal/adapters/cps/spec"
	"github.com/csg33k/cps-dct/internal/domain"
)

const rowH = 6.0

type column struct {
	title string
	frac  float64
	align string
}

var columns = []column{
	{"#", 0.07, "R"},
	{"Variable", 0.27, "L"},
	{"Type", 0.12, "C"},
	{"Start", 0.11, "R"},
	{"End", 0.11, "R"},
	{"Width", 0.10, "R"},
	{"Declared", 0.11, "R"},
	{"Decimals", 0.11, "R"},
}

// GeneratePDF writes the codebook for d to w.
func GeneratePDF(d domain.Dictionary, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(false, 18)
	pdf.AliasNbPages("{nb}")

	pdf.AddPage()
	y := drawHeader(pdf, d)

	_, pageH := pdf.GetPageSize()
	_, _, _, marginB := pdf.GetMargins()
	for i, e := range d.Entries {
		if y+rowH > pageH-marginB-8 {
			drawFooter(pdf, d)
			pdf.AddPage()
			y = drawHeader(pdf, d)
		}
		drawRow(pdf, y, i, e)
		y += rowH
	}
	drawFooter(pdf, d)

	return pdf.Output(w)
}

func drawHeader(pdf *fpdf.Fpdf, d domain.Dictionary) float64 {
	pageW, _ := pdf.GetPageSize()
	marginL, marginT, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	// ── Title bar ────────────────────────────────────────────────────────────
	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(contentW-4, 7, "CPS BASIC MONTHLY CODEBOOK  20"+d.Year, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 7, "Page "+fmt.Sprint(pdf.PageNo())+" of {nb}", "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	y := marginT + 13

	// ── Source ───────────────────────────────────────────────────────────────
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW, 5.5, "LAYOUT SOURCE", "LRT", 1, "L", true, 0, "")
	y += 5.5
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetXY(marginL, y)
	src := d.Source
	if src == "" {
		src = "(unknown)"
	}
	pdf.CellFormat(contentW/2, 6, src, "LB", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, strconv.Itoa(len(d.Entries))+" variables", "RB", 1, "R", false, 0, "")
	y += 10

	// ── Table header ─────────────────────────────────────────────────────────
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetXY(marginL, y)
	for i, c := range columns {
		ln := 0
		if i == len(columns)-1 {
			ln = 1
		}
		pdf.CellFormat(contentW*c.frac, 7, c.title, "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	return y + 7
}

func drawRow(pdf *fpdf.Fpdf, y float64, i int, e domain.DictionaryEntry) {
	pageW, _ := pdf.GetPageSize()
	marginL, _, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	if i%2 == 0 {
		pdf.SetFillColor(250, 250, 250)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	// A declared length that disagrees with the offsets is worth a second look.
	mismatch := e.DeclaredLength != e.Width()
	if mismatch {
		pdf.SetFont("Helvetica", "B", 8.5)
	} else {
		pdf.SetFont("Helvetica", "", 8.5)
	}

	decimals := ""
	if n := spec.ImpliedDecimals(e.Name); n > 0 {
		decimals = strconv.Itoa(n)
	}
	cells := []string{
		strconv.Itoa(i + 1),
		e.Name,
		e.Type.String(),
		strconv.Itoa(e.Start),
		strconv.Itoa(e.End),
		strconv.Itoa(e.Width()),
		strconv.Itoa(e.DeclaredLength),
		decimals,
	}

	pdf.SetXY(marginL, y)
	for j, c := range columns {
		ln := 0
		if j == len(columns)-1 {
			ln = 1
		}
		if mismatch && c.title == "Declared" {
			pdf.SetFillColor(250, 225, 200)
		}
		pdf.CellFormat(contentW*c.frac, rowH, cells[j], "1", ln, c.align, true, 0, "")
	}
}

func drawFooter(pdf *fpdf.Fpdf, d domain.Dictionary) {
	pageW, pageH := pdf.GetPageSize()
	marginL, _, marginR, marginB := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	pdf.SetXY(marginL, pageH-marginB-6)
	pdf.SetFont("Helvetica", "I", 7.5)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(contentW/2, 5, "Generated by cps-dct", "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 5, "cps20"+d.Year+".dct", "", 0, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
