// Package export renders the leaderboard for spreadsheets and terminals.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-selection/internal/ranking"
)

const SheetName = "Ranklist"

var xlsxHeader = []any{"Rank", "Chest No", "Name", "Department", "S1", "S2", "S3", "Without S1", "Final Total", "Status"}

// bucket fill colours, matching the leaderboard screen
var bucketFill = map[ranking.Bucket]string{
	ranking.BucketRejected: "#F8D7DA",
	ranking.BucketSelected: "#D4EDDA",
	ranking.BucketWaiting:  "#FFF3CD",
}

// WriteXLSX writes rows as a single-sheet workbook.
func WriteXLSX(w io.Writer, rows []ranking.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	head, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(xlsxHeader), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, head); err != nil {
		return err
	}

	styles := make(map[ranking.Bucket]int, len(bucketFill))
	for b, c := range bucketFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{c}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[b] = id
	}

	for i, r := range rows {
		line := i + 2
		start, _ := excelize.CoordinatesToCellName(1, line)
		end, _ := excelize.CoordinatesToCellName(len(xlsxHeader), line)
		vals := []any{r.Rank, r.ChestNo, r.Name, r.Department, r.S1, r.S2, r.S3, r.WithoutS1, r.FinalTotal, string(r.Bucket)}
		if err := f.SetSheetRow(SheetName, start, &vals); err != nil {
			return fmt.Errorf("row %d: %w", r.Rank, err)
		}
		if id, ok := styles[r.Bucket]; ok {
			if err := f.SetCellStyle(SheetName, start, end, id); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(SheetName, "C", "D", 24)

	_, err = f.WriteTo(w)
	return err
}

// SnapshotKey names an archived export taken at t.
func SnapshotKey(t time.Time) string {
	return "exports/ranklist-" + t.UTC().Format("20060102-150405") + ".xlsx"
}
