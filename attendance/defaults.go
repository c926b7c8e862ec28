package attendance

// =============================================================================
// FORM DEFAULTS - Pre-populate the form from saved records
// =============================================================================

// FormDefaults carries the saved state of one day's form. Kids without a
// record default to absent with an empty note.
type FormDefaults struct {
	Present map[string]bool
	Notes   map[string]string
}

// Defaults resolves the form state for day from previously saved records.
// Pure; existing is never mutated.
func Defaults(existing AttendanceSet, day Day) FormDefaults {
	d := FormDefaults{
		Present: make(map[string]bool),
		Notes:   make(map[string]string),
	}
	for _, r := range existing {
		if r.Date.Equal(day) {
			d.Present[r.KidID] = r.Present
			d.Notes[r.KidID] = r.Note
		}
	}
	return d
}

// PresentFor returns the saved checkbox state for a kid, false if unmarked.
func (d FormDefaults) PresentFor(kidID string) bool { return d.Present[kidID] }

// NoteFor returns the saved note for a kid, empty if unmarked.
func (d FormDefaults) NoteFor(kidID string) string { return d.Notes[kidID] }
