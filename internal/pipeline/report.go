package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// processedName matches the timestamped names MoveToPickup writes into the
// processed area: 2025-01-02_10-30-59_39015040218748.zip.
var processedName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_\d{2}-\d{2}-\d{2}_(.+)\.zip$`)

type ReportRow struct {
	Date    time.Time
	Barcode string
}

// BarcodesAddedInLastTwoWeeks lists the barcodes whose files were delivered
// in the last fourteen days, read off the timestamped names in the processed
// area. The date filter keeps rclone from listing the whole history.
func (p *Pipeline) BarcodesAddedInLastTwoWeeks(ctx context.Context) ([]ReportRow, error) {
	today := p.now()
	dates := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format("2006-01-02")+"*")
	}
	filter := "{" + strings.Join(dates, ",") + "}"

	entries, err := p.mover.Ls(ctx, p.remotes.S3Remote+":"+p.remotes.ProcessedPath, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]ReportRow, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		match := processedName.FindStringSubmatch(entry.Name)
		if match == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", match[1])
		if err != nil {
			continue
		}
		rows = append(rows, ReportRow{Date: date, Barcode: match[2]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Barcode < rows[j].Barcode
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows, nil
}

// WriteTSV writes rows as tab-separated date/barcode pairs, dates formatted
// MM/DD/YYYY the way the receiving spreadsheet expects.
func WriteTSV(w io.Writer, rows []ReportRow) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	for _, row := range rows {
		if err := writer.Write([]string{row.Date.Format("01/02/2006"), row.Barcode}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// GenerateReport writes the two-week report to a dated file and pushes it to
// the reports remote. Returns the report filename.
func (p *Pipeline) GenerateReport(ctx context.Context) (string, error) {
	rows, err := p.BarcodesAddedInLastTwoWeeks(ctx)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("digifeeds_report_%s.tsv", p.now().Format("2006-01-02"))
	local := filepath.Join(os.TempDir(), name)
	f, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if err := WriteTSV(f, rows); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	defer os.Remove(local)

	if err := p.mover.Copyto(ctx, local, fmt.Sprintf("%s:%s", p.remotes.ReportsRemote, name)); err != nil {
		return "", err
	}
	return name, nil
}
