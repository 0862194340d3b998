package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"retail-dashboard/internal/dataset"
	"retail-dashboard/internal/models"
)

const exportSheet = "Transactions"

// ExportColumns are the input columns followed by the derived ones.
var ExportColumns = []string{
	"invoice_no",
	"customer_id",
	"gender",
	"age",
	"category",
	"quantity",
	"price",
	"payment_method",
	"invoice_date",
	"shopping_mall",
	"total_amount",
	"year",
	"month",
	"month_year",
	"day_of_week",
}

// ExportFilename names a download made at now, e.g. filtered_sales_data_20240131.csv.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("filtered_sales_data_%s.%s", now.Format("20060102"), ext)
}

// WriteCSV writes t with invoice dates as YYYY-MM-DD.
func WriteCSV(w io.Writer, t *dataset.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rows := t.Rows()
	record := make([]string, len(ExportColumns))
	for i := range rows {
		exportRecord(&rows[i], record)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRecord(tx *models.Transaction, record []string) {
	record[0] = tx.InvoiceNo
	record[1] = tx.CustomerID
	record[2] = tx.Gender
	record[3] = strconv.Itoa(tx.Age)
	record[4] = tx.Category
	record[5] = strconv.Itoa(tx.Quantity)
	record[6] = strconv.FormatFloat(tx.Price, 'f', -1, 64)
	record[7] = tx.PaymentMethod
	record[8] = ""
	record[9] = tx.ShoppingMall
	record[10] = strconv.FormatFloat(tx.TotalAmount, 'f', -1, 64)
	record[11] = ""
	record[12] = ""
	record[13] = tx.MonthYear
	record[14] = tx.DayOfWeek
	if tx.HasDate {
		record[8] = tx.InvoiceDate.Format("2006-01-02")
		record[11] = strconv.Itoa(tx.Year)
		record[12] = strconv.Itoa(tx.Month)
	}
}

// WriteXLSX writes t as a single-sheet workbook with the same columns as WriteCSV.
func WriteXLSX(w io.Writer, t *dataset.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rows := t.Rows()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		tx := &rows[i]
		var date, year, month any = "", "", ""
		if tx.HasDate {
			date, year, month = tx.InvoiceDate.Format("2006-01-02"), tx.Year, tx.Month
		}
		values := []any{
			tx.InvoiceNo, tx.CustomerID, tx.Gender, tx.Age, tx.Category,
			tx.Quantity, tx.Price, tx.PaymentMethod, date, tx.ShoppingMall,
			tx.TotalAmount, year, month, tx.MonthYear, tx.DayOfWeek,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
