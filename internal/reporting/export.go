package reporting

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

var summaryHeader = []string{
	"Date", "Sales", "Stock Cost", "Employee Cost", "Operational Cost",
	"Total Costs", "Profit", "Margin %", "Transactions",
}

func (d DaySummary) cells() []string {
	return []string{
		d.Date,
		d.Sales.StringFixed(2),
		d.StockCost.StringFixed(2),
		d.EmployeeCost.StringFixed(2),
		d.Operational.StringFixed(2),
		d.Costs.StringFixed(2),
		d.Profit.StringFixed(2),
		d.ProfitMargin.StringFixed(2),
		strconv.Itoa(d.Transactions),
	}
}

func (t SummaryTotals) cells() []string {
	return []string{
		"TOTAL",
		t.Sales.StringFixed(2),
		"", "", "",
		t.Costs.StringFixed(2),
		t.Profit.StringFixed(2),
		t.ProfitMargin.StringFixed(2),
		strconv.Itoa(t.Transactions),
	}
}

// WriteSummaryCSV streams the daily breakdown followed by a totals row.
func WriteSummaryCSV(w io.Writer, s PeriodSummary) error {
	buf := bufio.NewWriter(w)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	if err := writer.Write(summaryHeader); err != nil {
		return err
	}
	for _, row := range s.DailyBreakdown {
		if err := writer.Write(row.cells()); err != nil {
			return err
		}
	}
	if err := writer.Write(s.Totals.cells()); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// WriteSummaryXLSX renders the summary as a single-sheet workbook.
func WriteSummaryXLSX(w io.Writer, s PeriodSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := setRow(f, 1, toAny(summaryHeader)); err != nil {
		return err
	}
	for i, d := range s.DailyBreakdown {
		values := []any{
			d.Date,
			d.Sales.InexactFloat64(),
			d.StockCost.InexactFloat64(),
			d.EmployeeCost.InexactFloat64(),
			d.Operational.InexactFloat64(),
			d.Costs.InexactFloat64(),
			d.Profit.InexactFloat64(),
			d.ProfitMargin.InexactFloat64(),
			d.Transactions,
		}
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}
	totals := []any{
		"TOTAL",
		s.Totals.Sales.InexactFloat64(),
		nil, nil, nil,
		s.Totals.Costs.InexactFloat64(),
		s.Totals.Profit.InexactFloat64(),
		s.Totals.ProfitMargin.InexactFloat64(),
		s.Totals.Transactions,
	}
	if err := setRow(f, len(s.DailyBreakdown)+2, totals); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
		return fmt.Errorf("reporting: xlsx row %d: %w", row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
