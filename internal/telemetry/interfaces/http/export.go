package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	sensors "coldwatch/internal/sensors/domain"
	telemetry "coldwatch/internal/telemetry/domain"
)

func buildHistoryCSV(sensor *sensors.Sensor, rows []telemetry.Measurement) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ts", "temperature_c", "voltage_v"}); err != nil {
		return nil, err
	}
	for _, m := range rows {
		record := []string{
			m.TS.Format(time.RFC3339),
			strconv.FormatFloat(m.TemperatureC, 'f', -1, 64),
			strconv.FormatFloat(m.VoltageV, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildHistoryXLSX(sensor *sensors.Sensor, rows []telemetry.Measurement) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "history"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Sensor")
	_ = f.SetCellValue(sheet, "B1", sensor.HardwareID)
	_ = f.SetCellValue(sheet, "A2", "Name")
	_ = f.SetCellValue(sheet, "B2", sensor.FriendlyName)

	_ = f.SetCellValue(sheet, "A4", "Timestamp")
	_ = f.SetCellValue(sheet, "B4", "Temperature (°C)")
	_ = f.SetCellValue(sheet, "C4", "Voltage (V)")
	for i, m := range rows {
		row := i + 5
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.TS.Format(time.RFC3339))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.TemperatureC)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.VoltageV)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildHistoryPDF(sensor *sensors.Sensor, rows []telemetry.Measurement) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Measurement History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Sensor: %s", sensor.HardwareID))
	pdf.Ln(5)
	if sensor.FriendlyName != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Name: %s", sensor.FriendlyName))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Rows: %d", len(rows)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Temperature (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Voltage (V)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range rows {
		pdf.CellFormat(60, 6, m.TS.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%.1f", m.TemperatureC), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%.2f", m.VoltageV), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
