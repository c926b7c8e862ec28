/*
merge.go - Day replacement algorithm

PURPOSE:
  Rebuilds one day's attendance records from a submitted form. The day's
  existing records are discarded wholesale and replaced by exactly one
  record per submitted kid; records for every other day pass through
  untouched.

FULL REPLACEMENT CONTRACT:
  Marking is form-shaped, not row-shaped: whatever the form says on
  submit IS the day's truth. A kid that dropped out of the submitter's
  scope between sessions simply disappears from that day's records, and
  an empty submission wipes the day entirely.

IDEMPOTENCY:
  Re-running with identical inputs yields the same logical content.
  Only Timestamp and the surrogate record id reflect the latest call.

SEE ALSO:
  - scope.go: produces the kidsInScope argument
  - defaults.go: pre-populates the form this algorithm consumes
  - store.go: ReplaceDay persists what BuildRecords emits
*/
package attendance

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MERGE ENGINE - Replace one day's slice of the record table
// =============================================================================

// Merge builds the replacement record set after a form submission: every
// record dated day is dropped, one fresh record per submission is emitted,
// and records for all other days are carried over verbatim.
func Merge(existing AttendanceSet, day Day, subs Submissions, kidsInScope []Kid, actor string, now time.Time) (AttendanceSet, error) {
	fresh, err := BuildRecords(day, subs, kidsInScope, actor, now)
	if err != nil {
		return nil, err
	}
	kept := existing.WithoutDay(day)
	return append(kept, fresh...), nil
}

// BuildRecords is the emission half of Merge: one record per submission,
// program denormalized from the scoped roster (unknown kid id -> empty
// string, not an error). Exposed separately so the store's replace-day
// path can persist a single day without materializing the full history.
func BuildRecords(day Day, subs Submissions, kidsInScope []Kid, actor string, now time.Time) (AttendanceSet, error) {
	programs := make(map[string]string, len(kidsInScope))
	for _, k := range kidsInScope {
		programs[k.ID] = k.Program
	}

	records := make(AttendanceSet, 0, len(subs))
	for kidID, mark := range subs {
		if kidID == "" {
			return nil, &InvalidSubmissionError{KidID: kidID, Reason: "empty kid id"}
		}
		records = append(records, AttendanceRecord{
			ID:        uuid.NewString(),
			Date:      day,
			KidID:     kidID,
			Present:   mark.Present,
			Note:      mark.Note,
			Program:   programs[kidID],
			MarkedBy:  actor,
			Timestamp: now,
		})
	}

	// Map iteration order is random; sort so output is deterministic.
	sort.Slice(records, func(i, j int) bool { return records[i].KidID < records[j].KidID })
	return records, nil
}
