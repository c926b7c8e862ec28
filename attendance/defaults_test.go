package attendance_test

import (
	"testing"

	"github.com/warp/rollcall/attendance"
)

func TestDefaults_NoHistory_AllAbsent(t *testing.T) {
	d := attendance.Defaults(nil, day("2026-03-10"))

	if d.PresentFor("k1") {
		t.Error("unmarked kid should default to absent")
	}
	if d.NoteFor("k1") != "" {
		t.Error("unmarked kid should default to an empty note")
	}
}

func TestDefaults_ReflectsSavedDay(t *testing.T) {
	// GIVEN: Saved marks for today
	// WHEN: Resolving form defaults for today
	// THEN: The form shows exactly what was saved

	existing := attendance.AttendanceSet{
		savedRecord("2026-03-10", "k1", true, "on time"),
		savedRecord("2026-03-10", "k3", false, "sick"),
	}
	d := attendance.Defaults(existing, day("2026-03-10"))

	if !d.PresentFor("k1") || d.NoteFor("k1") != "on time" {
		t.Errorf("k1 defaults wrong: present=%v note=%q", d.PresentFor("k1"), d.NoteFor("k1"))
	}
	if d.PresentFor("k3") || d.NoteFor("k3") != "sick" {
		t.Errorf("k3 defaults wrong: present=%v note=%q", d.PresentFor("k3"), d.NoteFor("k3"))
	}
	if d.PresentFor("k2") {
		t.Error("kid without a saved mark should default to absent")
	}
}

func TestDefaults_IgnoresOtherDays(t *testing.T) {
	existing := attendance.AttendanceSet{
		savedRecord("2026-03-09", "k1", true, "yesterday"),
	}
	d := attendance.Defaults(existing, day("2026-03-10"))

	if d.PresentFor("k1") || d.NoteFor("k1") != "" {
		t.Error("yesterday's marks must not leak into today's form")
	}
}
