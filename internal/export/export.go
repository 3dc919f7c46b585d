// Package export renders appointment reports as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"localhire/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Appointments"

var headers = []string{"ID", "Date", "Time", "Client", "Client email", "Contractor", "Amount", "Status", "Proof", "Rated"}

var statusFill = map[models.AppointmentStatus]string{
	models.StatusPending:       "#FFEB9C",
	models.StatusCompleted:     "#C6EFCE",
	models.StatusCancelled:     "#FFC7CE",
	models.StatusRejected:      "#FFC7CE",
	models.StatusNeedsRevision: "#DDEBF7",
}

// BuildAppointments lays out one row per appointment under a styled header.
// contractorNames maps ids to display names; unknown ids are written as-is.
func BuildAppointments(appts []*models.Appointment, contractorNames map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(SheetName, "A1", last, headerStyle)

	styles := make(map[models.AppointmentStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("status style: %w", err)
		}
		styles[status] = id
	}

	for i, a := range appts {
		row := i + 2
		contractor := a.ContractorID
		if name, ok := contractorNames[a.ContractorID]; ok && name != "" {
			contractor = name
		}
		values := []interface{}{
			a.ID,
			strings.ReplaceAll(a.SlotDate, "_", "/"),
			a.SlotTime,
			a.ClientName,
			a.ClientEmail,
			contractor,
			a.Amount,
			string(a.Status),
			a.ProofImage,
			a.HasBeenRated,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, start, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		if style, ok := styles[a.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(8, row)
			_ = f.SetCellStyle(SheetName, cell, cell, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38)
	_ = f.SetColWidth(SheetName, "B", "H", 16)
	_ = f.SetColWidth(SheetName, "I", "I", 40)
	return f, nil
}

// WriteAppointments builds the workbook and streams it to w.
func WriteAppointments(w io.Writer, appts []*models.Appointment, contractorNames map[string]string) error {
	f, err := BuildAppointments(appts, contractorNames)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
