// Package scorecard renders a finished or running session as a one-page PDF.
package scorecard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

var ErrNothingAnswered = errors.New("scorecard: no answered questions")

type CategoryScore struct {
	Category string
	Correct  int
	Answered int
}

type Data struct {
	SessionID   string
	Title       string
	Correct     int
	Answered    int
	Date        time.Time
	Categories  []string
	PerCategory []CategoryScore
}

func GeneratePDF(data Data) ([]byte, error) {
	if data.Answered == 0 {
		return nil, ErrNothingAnswered
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Quizla resultat", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 28)
	pdf.CellFormat(0, 16, "Quizla", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 16)
	pdf.CellFormat(0, 10, tr("Resultat för "+data.Title), "", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("%d av %d rätt (%.0f%%)", data.Correct, data.Answered, pct(data.Correct, data.Answered))),
		"", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 8, tr("Datum: "+data.Date.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")

	if len(data.PerCategory) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Per kategori", "", 1, "C", false, 0, "")

		rows := append([]CategoryScore(nil), data.PerCategory...)
		sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })

		pdf.SetX(48)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(100, 7, "Kategori", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, tr("Rätt"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, "Besvarade", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, "Procent", "1", 1, "C", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, row := range rows {
			pdf.SetX(48)
			pdf.CellFormat(100, 7, tr(row.Category), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d", row.Correct), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d", row.Answered), "1", 0, "C", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%.0f%%", pct(row.Correct, row.Answered)), "1", 1, "C", false, 0, "")
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, tr("Kategorier: "+join(data.Categories)), "", "C", false)
	pdf.Ln(2)
	pdf.CellFormat(0, 6, "Session: "+data.SessionID, "", 1, "C", false, 0, "")

	return pdf.OutputBytes()
}

// FileName is the download name for a session's scorecard.
func FileName(sessionID string) string {
	return "quizla-resultat-" + sessionID + ".pdf"
}

func pct(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) * 100 / float64(b)
}

func join(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}
