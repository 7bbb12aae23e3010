package timezone

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	location, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if location != time.UTC {
		t.Fatalf("expected UTC, got %s", location)
	}
	if _, err := Load("Not/AZone"); err == nil {
		t.Fatal("expected error")
	}
}

func TestToday(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*60*60+30*60)
	// 20:00 UTC on the 4th is already the 5th in Kolkata
	now := func() time.Time {
		return time.Date(2024, time.March, 4, 20, 0, 0, 0, time.UTC).In(kolkata)
	}
	if got := Today(now).String(); got != "2024-03-05" {
		t.Fatalf("expected 2024-03-05, got %s", got)
	}
	if got := Clock(kolkata)().Location(); got != kolkata {
		t.Fatalf("expected clock in %s, got %s", kolkata, got)
	}
}
