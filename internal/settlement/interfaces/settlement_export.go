package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	settlementapp "storeops-cloud/internal/settlement/application"
	settlement "storeops-cloud/internal/settlement/domain"
)

// ExportPeriod describes the window an export covers.
type ExportPeriod struct {
	LocationName string
	From         time.Time
	To           time.Time
}

// BuildSettlementPDF renders a settlement report for a location and period.
func BuildSettlementPDF(period ExportPeriod, records []settlement.Settlement) ([]byte, error) {
	totals := settlementapp.SumTotals(records)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Lottery Settlement Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Location: %s", period.LocationName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", period.From.Format("2006-01-02"), period.To.Format("2006-01-02")))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(28, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Game", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Book", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Sold", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Gross", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Commission", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Net Due", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range records {
		pdf.CellFormat(28, 6, record.SettlementDate.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, record.GameName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, record.BookNumber, "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, fmt.Sprintf("%d", record.TicketsSold), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, record.GrossSales.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, record.Commission.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, record.NetDue.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, record.Status, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(111, 6, "Totals", "1", 0, "R", false, 0, "")
	pdf.CellFormat(22, 6, fmt.Sprintf("%d", totals.TicketsSold), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, totals.GrossSales.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, totals.Commission.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, totals.NetDue.StringFixed(2), "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 6, "", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSettlementXLSX renders a settlement report workbook.
func BuildSettlementXLSX(period ExportPeriod, records []settlement.Settlement) ([]byte, error) {
	totals := settlementapp.SumTotals(records)

	f := excelize.NewFile()
	summarySheet := "summary"
	itemsSheet := "settlements"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(itemsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Lottery Settlement Report")
	_ = f.SetCellValue(summarySheet, "A3", "Location")
	_ = f.SetCellValue(summarySheet, "B3", period.LocationName)
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", period.From.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", period.To.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Books Settled")
	_ = f.SetCellValue(summarySheet, "B6", len(records))
	_ = f.SetCellValue(summarySheet, "A7", "Tickets Sold")
	_ = f.SetCellValue(summarySheet, "B7", totals.TicketsSold)
	_ = f.SetCellValue(summarySheet, "A8", "Gross Sales")
	_ = f.SetCellValue(summarySheet, "B8", totals.GrossSales.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A9", "Commission")
	_ = f.SetCellValue(summarySheet, "B9", totals.Commission.StringFixed(2))
	_ = f.SetCellValue(summarySheet, "A10", "Net Due")
	_ = f.SetCellValue(summarySheet, "B10", totals.NetDue.StringFixed(2))

	headers := []string{"Date", "Game", "Book", "Tickets Sold", "Gross", "Commission", "Net Due", "Status", "Approved By"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, header)
	}
	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), record.SettlementDate.Format("2006-01-02"))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), record.GameName)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), record.BookNumber)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), record.TicketsSold)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), record.GrossSales.StringFixed(2))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", row), record.Commission.StringFixed(2))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("G%d", row), record.NetDue.StringFixed(2))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("H%d", row), record.Status)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("I%d", row), record.ApprovedBy)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSettlementCSV renders a settlement report as CSV rows.
func BuildSettlementCSV(records []settlement.Settlement) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"date", "game", "book", "tickets_sold", "gross_sales", "commission", "net_due", "status", "approved_by"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, record := range records {
		row := []string{
			record.SettlementDate.Format("2006-01-02"),
			record.GameName,
			record.BookNumber,
			fmt.Sprintf("%d", record.TicketsSold),
			record.GrossSales.StringFixed(2),
			record.Commission.StringFixed(2),
			record.NetDue.StringFixed(2),
			record.Status,
			record.ApprovedBy,
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
