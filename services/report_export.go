package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet titles of the exported workbooks
const (
	SheetPhaseReport        = "Horas por Fase"
	SheetBusinessLineReport = "Horas por Línea de Negocio"
	SheetDayReport          = "Horas por Día"
	SheetUserHoursReport    = "Reporte Horas Usuario"
)

// XLSXContentType is the MIME type of the exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	numFmtTwoDecimals = 2 // built-in "0.00"
	numFmtOneDecimal  = "0.0"
	userHoursTotalRow = "TOTAL POR DÍA"
)

// reportStyles are the cell styles shared by every report sheet
type reportStyles struct {
	header int
	body   int
	number int
	total  int
	banner int
}

func newReportStyles(f *excelize.File, oneDecimal bool) (*reportStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	number := &excelize.Style{Border: border}
	if oneDecimal {
		fmtCode := numFmtOneDecimal
		number.CustomNumFmt = &fmtCode
	} else {
		number.NumFmt = numFmtTwoDecimals
	}

	s := &reportStyles{}
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"E2E8F0"}, Pattern: 1},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}); err != nil {
		return nil, err
	}
	if s.body, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return nil, err
	}
	if s.number, err = f.NewStyle(number); err != nil {
		return nil, err
	}
	totalStyle := *number
	totalStyle.Font = &excelize.Font{Bold: true}
	totalStyle.Fill = excelize.Fill{Type: "pattern", Color: []string{"FFF3E0"}, Pattern: 1}
	if s.total, err = f.NewStyle(&totalStyle); err != nil {
		return nil, err
	}
	if s.banner, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E3F2FD"}, Pattern: 1},
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// cellName converts 1-based coordinates to an A1 reference, past column Z included
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// writeTable writes a header row at headerRow followed by the data rows.
// Columns from firstNumericCol on get the numeric style. With no data rows only
// the header is written and styled.
func writeTable(f *excelize.File, sheet string, styles *reportStyles, headerRow int, headers []string, rows [][]interface{}, firstNumericCol int) error {
	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, cellName(1, headerRow), &headerCells); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	lastCol := len(headers)
	if err := f.SetCellStyle(sheet, cellName(1, headerRow), cellName(lastCol, headerRow), styles.header); err != nil {
		return err
	}

	for i := range rows {
		if err := f.SetSheetRow(sheet, cellName(1, headerRow+1+i), &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	firstRow, lastRow := headerRow+1, headerRow+len(rows)
	if firstNumericCol > 1 {
		if err := f.SetCellStyle(sheet, cellName(1, firstRow), cellName(firstNumericCol-1, lastRow), styles.body); err != nil {
			return err
		}
	}
	return f.SetCellStyle(sheet, cellName(firstNumericCol, firstRow), cellName(lastCol, lastRow), styles.number)
}

func newReportFile(sheet string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeBuffer(f *excelize.File) (*bytes.Buffer, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func pivotHeaders(leading []string, m *PivotMatrix) []string {
	headers := append([]string{}, leading...)
	for _, c := range m.Columns {
		headers = append(headers, c.Label)
	}
	return append(headers, "Total")
}

// ExportPhaseReport renders the phase report: Proyecto, Línea de Negocio, one
// column per phase, Total. Hours use two decimals.
func ExportPhaseReport(m *PivotMatrix) (*bytes.Buffer, error) {
	f, err := newReportFile(SheetPhaseReport)
	if err != nil {
		return nil, err
	}
	styles, err := newReportStyles(f, false)
	if err != nil {
		f.Close()
		return nil, err
	}

	headers := pivotHeaders([]string{"Proyecto", "Línea de Negocio"}, m)
	rows := make([][]interface{}, len(m.Rows))
	for i, r := range m.Rows {
		row := []interface{}{r.Label, r.Group}
		for _, v := range r.Values {
			row = append(row, v)
		}
		rows[i] = append(row, r.Total)
	}

	if err := writeTable(f, SheetPhaseReport, styles, 1, headers, rows, 3); err != nil {
		f.Close()
		return nil, err
	}
	if err := setColWidths(f, SheetPhaseReport, colWidth{"A", "B", 35}, colWidth{"C", excelizeColumn(len(headers)), 14}); err != nil {
		f.Close()
		return nil, err
	}
	return writeBuffer(f)
}

// ExportBusinessLineReport renders the business-line report: Usuario, one column
// per business line, Total. Hours use two decimals.
func ExportBusinessLineReport(m *PivotMatrix) (*bytes.Buffer, error) {
	f, err := newReportFile(SheetBusinessLineReport)
	if err != nil {
		return nil, err
	}
	styles, err := newReportStyles(f, false)
	if err != nil {
		f.Close()
		return nil, err
	}

	headers := pivotHeaders([]string{"Usuario"}, m)
	rows := make([][]interface{}, len(m.Rows))
	for i, r := range m.Rows {
		row := []interface{}{r.Label}
		for _, v := range r.Values {
			row = append(row, v)
		}
		rows[i] = append(row, r.Total)
	}

	if err := writeTable(f, SheetBusinessLineReport, styles, 1, headers, rows, 2); err != nil {
		f.Close()
		return nil, err
	}
	if err := setColWidths(f, SheetBusinessLineReport, colWidth{"A", "A", 30}, colWidth{"B", excelizeColumn(len(headers)), 16}); err != nil {
		f.Close()
		return nil, err
	}
	return writeBuffer(f)
}

// ExportDayReport renders the day report: Usuario, one dd/mm column per calendar
// day, Total. Hours use one decimal.
func ExportDayReport(m *UserDayMatrix) (*bytes.Buffer, error) {
	f, err := newReportFile(SheetDayReport)
	if err != nil {
		return nil, err
	}
	styles, err := newReportStyles(f, true)
	if err != nil {
		f.Close()
		return nil, err
	}

	headers := []string{"Usuario"}
	for _, d := range m.Days {
		headers = append(headers, d.Format("02/01"))
	}
	headers = append(headers, "Total")

	rows := make([][]interface{}, len(m.Rows))
	for i, r := range m.Rows {
		row := []interface{}{r.User.Name}
		for _, c := range r.Cells {
			row = append(row, c.Total)
		}
		rows[i] = append(row, r.Total)
	}

	if err := writeTable(f, SheetDayReport, styles, 1, headers, rows, 2); err != nil {
		f.Close()
		return nil, err
	}
	if err := setColWidths(f, SheetDayReport, colWidth{"A", "A", 25}, colWidth{"B", excelizeColumn(len(headers)), 8}); err != nil {
		f.Close()
		return nil, err
	}
	return writeBuffer(f)
}

// ExportUserHoursReport renders the calendar view in four sections: a period
// banner on row 1, a blank row 2, headers on row 3 followed by one row per user
// (empty cells for days without hours) and a trailing per-day total row.
func ExportUserHoursReport(m *UserDayMatrix) (*bytes.Buffer, error) {
	sheet := SheetUserHoursReport
	f, err := newReportFile(sheet)
	if err != nil {
		return nil, err
	}
	styles, err := newReportStyles(f, true)
	if err != nil {
		f.Close()
		return nil, err
	}

	lastCol := len(m.Days) + 2
	banner := fmt.Sprintf("Período: %s - %s", m.Range.From.Format("02/01/2006"), m.Range.Until.Format("02/01/2006"))
	if err := f.SetCellValue(sheet, "A1", banner); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.MergeCell(sheet, "A1", cellName(lastCol, 1)); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", cellName(lastCol, 1), styles.banner); err != nil {
		f.Close()
		return nil, err
	}

	headers := []string{"Usuario"}
	for _, d := range m.Days {
		headers = append(headers, d.Format("02/01")+"\n"+d.Format("Mon"))
	}
	headers = append(headers, "Total")

	rows := make([][]interface{}, 0, len(m.Rows)+1)
	for _, r := range m.Rows {
		row := []interface{}{r.User.Name}
		for _, c := range r.Cells {
			if c.Total > 0 {
				row = append(row, c.Total)
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, append(row, r.Total))
	}

	totals := []interface{}{userHoursTotalRow}
	for _, t := range m.DayTotals {
		totals = append(totals, t)
	}
	rows = append(rows, append(totals, m.GrandTotal))

	if err := writeTable(f, sheet, styles, 3, headers, rows, 2); err != nil {
		f.Close()
		return nil, err
	}
	totalRow := 3 + len(rows)
	if err := f.SetCellStyle(sheet, cellName(1, totalRow), cellName(lastCol, totalRow), styles.total); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetRowHeight(sheet, 3, 30); err != nil {
		f.Close()
		return nil, err
	}
	if err := setColWidths(f, sheet, colWidth{"A", "A", 25}, colWidth{"B", excelizeColumn(lastCol), 10}); err != nil {
		f.Close()
		return nil, err
	}
	return writeBuffer(f)
}

// colWidth is a width applied to the columns from..to
type colWidth struct {
	from, to string
	width    float64
}

func setColWidths(f *excelize.File, sheet string, widths ...colWidth) error {
	for _, w := range widths {
		if err := f.SetColWidth(sheet, w.from, w.to, w.width); err != nil {
			return fmt.Errorf("failed to size columns %s:%s: %w", w.from, w.to, err)
		}
	}
	return nil
}

func excelizeColumn(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}
