package schedule

import (
	"slices"
	"testing"
	"time"
)

func TestAllSubjects(t *testing.T) {
	expected := []string{"DIVP", "SOOAD", "AI", "PS", "DIVP Lab", "PPL Lab", "CD"}
	if got := Default().AllSubjects(); !slices.Equal(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestScheduleFor(t *testing.T) {
	catalog := Default()

	if got := catalog.ScheduleFor(time.Sunday); len(got) != 0 {
		t.Fatalf("expected no classes on sunday, got %v", got)
	}

	friday := catalog.ScheduleForName("Friday")
	if len(friday) != 4 {
		t.Fatalf("expected 4 classes on friday, got %d", len(friday))
	}
	if friday[3].Name != "PPL Lab" || friday[3].Sessions != 2 {
		t.Fatalf("unexpected last friday class: %+v", friday[3])
	}

	if got := catalog.ScheduleForName("Someday"); len(got) != 0 {
		t.Fatalf("expected no classes for unknown day, got %v", got)
	}

	// returned slices are copies
	friday[0].Name = "changed"
	if catalog.ScheduleFor(time.Friday)[0].Name != "DIVP" {
		t.Fatal("catalog was mutated through returned slice")
	}
}

func TestColorFor(t *testing.T) {
	catalog := Default()
	if got := catalog.ColorFor("AI"); got != "#8B5CF6" {
		t.Fatalf("expected #8B5CF6, got %q", got)
	}
	if got := catalog.ColorFor("Unknown"); got != FallbackColor {
		t.Fatalf("expected fallback color, got %q", got)
	}
}

func TestParse(t *testing.T) {
	catalog, err := Parse([]byte(`
days:
  Tuesday:
    - name: B
      sessions: 2
      time: 10:00 – 12:00
  Monday:
    - name: A
      sessions: 1
      time: 09:00 – 10:00
    - name: B
      sessions: 1
      time: 10:00 – 11:00
colors:
  A: "#000000"
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := catalog.AllSubjects(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("expected [A B], got %v", got)
	}
	if got := catalog.ColorFor("B"); got != FallbackColor {
		t.Fatalf("expected fallback color, got %q", got)
	}
}

func TestParseInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"unknown day":   "days:\n  Funday:\n    - {name: A, sessions: 1}\n",
		"zero sessions": "days:\n  Monday:\n    - {name: A, sessions: 0}\n",
		"empty name":    "days:\n  Monday:\n    - {sessions: 1}\n",
		"not yaml":      "days: [",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
