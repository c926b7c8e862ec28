/*
csv.go - CSV codec for the legacy flat-file format

PURPOSE:
  The previous deployment of this system kept its data in flat CSV
  files. Exports reproduce that column layout so existing spreadsheets
  keep working, and the admin import endpoint reads the same layout
  back for migration.

COLUMNS:
  attendance.csv: date,kid_id,present,note,program,marked_by,timestamp
                  (present is 1/0; timestamp ISO, seconds precision)
  kids.csv:       id,name,age,gender,program
*/
package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/warp/rollcall/attendance"
)

var (
	attendanceCSVHeader = []string{"date", "kid_id", "present", "note", "program", "marked_by", "timestamp"}
	kidsCSVHeader       = []string{"id", "name", "age", "gender", "program"}
)

// writeAttendanceCSV writes records in the legacy column order.
func writeAttendanceCSV(w io.Writer, records attendance.AttendanceSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(attendanceCSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		present := "0"
		if r.Present {
			present = "1"
		}
		row := []string{
			r.Date.String(),
			r.KidID,
			present,
			r.Note,
			r.Program,
			r.MarkedBy,
			r.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeKidsCSV(w io.Writer, kids []attendance.Kid) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(kidsCSVHeader); err != nil {
		return err
	}
	for _, k := range kids {
		row := []string{k.ID, k.Name, strconv.Itoa(k.Age), k.Gender, k.Program}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// parseAttendanceCSV reads the legacy layout back into an AttendanceSet.
// Each row gets a fresh surrogate id.
func parseAttendanceCSV(r io.Reader) (attendance.AttendanceSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(attendanceCSVHeader) || header[0] != "date" || header[1] != "kid_id" {
		return nil, fmt.Errorf("unexpected header %v, want %v", header, attendanceCSVHeader)
	}

	var records attendance.AttendanceSet
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		day, err := attendance.ParseDay(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		present, err := strconv.ParseBool(row[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: present %q: %w", line, row[2], err)
		}
		ts, err := parseLegacyTimestamp(row[6])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		records = append(records, attendance.AttendanceRecord{
			ID:        uuid.NewString(),
			Date:      day,
			KidID:     row[1],
			Present:   present,
			Note:      row[3],
			Program:   row[4],
			MarkedBy:  row[5],
			Timestamp: ts,
		})
	}
	return records, nil
}

// The legacy writer used seconds-precision local timestamps without a
// zone; newer exports are RFC3339. Accept both, and empty.
func parseLegacyTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
