package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// Export formats for stored metrics
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type metricColumn struct {
	name  string
	value func(m *domain.VisibilityMetric) any
}

var metricColumns = []metricColumn{
	{"Period Type", func(m *domain.VisibilityMetric) any { return string(m.PeriodType) }},
	{"Period Start", func(m *domain.VisibilityMetric) any { return m.PeriodStart.Format(time.DateOnly) }},
	{"Period End", func(m *domain.VisibilityMetric) any { return m.PeriodEnd.Format(time.DateOnly) }},
	{"Location ID", func(m *domain.VisibilityMetric) any {
		if m.LocationID == nil {
			return ""
		}
		return m.LocationID.String()
	}},
	{"Tracked Keywords", func(m *domain.VisibilityMetric) any { return m.TotalTrackedKeywords }},
	{"Map Pack Appearances", func(m *domain.VisibilityMetric) any { return m.MapPackAppearances }},
	{"Map Pack Visibility %", func(m *domain.VisibilityMetric) any { return m.MapPackVisibility }},
	{"Top 3", func(m *domain.VisibilityMetric) any { return m.Top3Count }},
	{"Top 10", func(m *domain.VisibilityMetric) any { return m.Top10Count }},
	{"Top 20", func(m *domain.VisibilityMetric) any { return m.Top20Count }},
	{"Share of Voice %", func(m *domain.VisibilityMetric) any { return m.ShareOfVoice }},
	{"Featured Snippets", func(m *domain.VisibilityMetric) any { return m.FeaturedSnippetCount }},
	{"Local Packs", func(m *domain.VisibilityMetric) any { return m.LocalPackCount }},
	{"Computed At", func(m *domain.VisibilityMetric) any { return m.ComputedAt.UTC().Format(time.RFC3339) }},
}

func exportFilename(businessID string, ext string) string {
	return fmt.Sprintf("attachment; filename=visibility-%s.%s", businessID, ext)
}

func writeMetricsCSV(w http.ResponseWriter, businessID string, metrics []*domain.VisibilityMetric) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", exportFilename(businessID, FormatCSV))

	writer := csv.NewWriter(w)

	header := make([]string, len(metricColumns))
	for i, col := range metricColumns {
		header[i] = col.name
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range metrics {
		record := make([]string, len(metricColumns))
		for i, col := range metricColumns {
			record[i] = formatCell(col.value(m))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeMetricsXLSX(w http.ResponseWriter, businessID string, metrics []*domain.VisibilityMetric, logger *zap.Logger) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Visibility"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		RenderError(w, http.StatusInternalServerError, "Failed to build spreadsheet")
		return
	}

	for i, col := range metricColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, col.name)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	lastCol, _ := excelize.CoordinatesToCellName(len(metricColumns), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastCol, headerStyle)

	for row, m := range metrics {
		for i, col := range metricColumns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row+2)
			_ = f.SetCellValue(sheetName, cell, col.value(m))
		}
	}

	for i := range metricColumns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheetName, colName, colName, 18)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", exportFilename(businessID, FormatXLSX))

	if err := f.Write(w); err != nil {
		logger.Error("error writing XLSX to response", zap.Error(err))
	}
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return fmt.Sprint(x)
	}
}
