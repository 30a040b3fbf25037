package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/prudhvinik1/kaucjaflow/internal/models"
)

// WriteCSVReport renders a daily summary as `type,count` rows followed by a
// total row.
func WriteCSVReport(w io.Writer, summary models.Summary) error {
	cw := csv.NewWriter(w)

	records := [][]string{{"type", "count"}}
	for _, t := range models.EventTypes {
		records = append(records, []string{string(t), strconv.FormatInt(summary.Count(t), 10)})
	}
	records = append(records, []string{"total", strconv.FormatInt(summary.Total, 10)})

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReportFilename is the attachment name for the report of day.
func ReportFilename(day string) string {
	return "raport-" + day + ".csv"
}
