package messages

import (
	"strings"
	"testing"
)

func TestNewData_GeneratesIDWhenEmpty(t *testing.T) {
	d := NewData("", "payload")
	if d.ID() == "" {
		t.Fatalf("expected generated ID")
	}

	d2 := NewData("fixed", "payload")
	if d2.ID() != "fixed" {
		t.Fatalf("expected caller-provided ID, got %q", d2.ID())
	}
	if d.ID() == d2.ID() {
		t.Fatalf("IDs should differ")
	}
}

func TestData_Accessors(t *testing.T) {
	d := NewData("id-1", "hello")
	if d.Type() != "data" {
		t.Fatalf("unexpected type %q", d.Type())
	}
	if d.Payload() != "hello" {
		t.Fatalf("unexpected payload %q", d.Payload())
	}
	if d.Timestamp().IsZero() {
		t.Fatalf("timestamp not set")
	}
	s := d.String()
	if !strings.Contains(s, "id-1") || !strings.Contains(s, "hello") {
		t.Fatalf("String missing fields: %q", s)
	}
}

func TestSeverity_String(t *testing.T) {
	cases := map[Severity]string{
		SeverityInfo:    "INFO",
		SeverityWarning: "WARNING",
		SeverityError:   "ERROR",
		Severity(99):    "Severity(99)",
	}
	for sev, want := range cases {
		if got := sev.String(); got != want {
			t.Fatalf("Severity(%d).String() = %q, want %q", int(sev), got, want)
		}
	}
}

func TestEvent_Accessors(t *testing.T) {
	e := NewEvent("evt-1", SeverityError, "database connection failed")
	if e.Type() != "event" {
		t.Fatalf("unexpected type %q", e.Type())
	}
	if e.Severity() != SeverityError {
		t.Fatalf("unexpected severity %v", e.Severity())
	}
	if e.Description() != "database connection failed" {
		t.Fatalf("unexpected description %q", e.Description())
	}
	if !strings.Contains(e.String(), "ERROR") {
		t.Fatalf("String missing severity: %q", e.String())
	}
}

func TestECUData_CopiesParams(t *testing.T) {
	params := map[string]string{"rpm": "3000"}
	m := NewECUData("", "engine", params)

	// Mutating the caller's map after construction must not leak in.
	params["rpm"] = "9999"
	if v, _ := m.Param("rpm"); v != "3000" {
		t.Fatalf("constructor did not copy params, rpm = %q", v)
	}

	// Mutating the returned map must not leak back.
	out := m.Params()
	out["rpm"] = "1"
	if v, _ := m.Param("rpm"); v != "3000" {
		t.Fatalf("Params did not copy, rpm = %q", v)
	}
}

func TestECUData_String(t *testing.T) {
	m := NewECUData("id-1", "engine", map[string]string{
		"rpm":         "3000",
		"temperature": "90.5",
	})

	s := m.String()
	if !strings.Contains(s, "ecu=engine") {
		t.Fatalf("String missing ECU ID: %q", s)
	}
	// Params render sorted by key for stable output.
	if !strings.Contains(s, "rpm=3000 temperature=90.5") {
		t.Fatalf("String params not sorted: %q", s)
	}
}

func TestECUData_ParamMissing(t *testing.T) {
	m := NewECUData("", "brake", nil)
	if _, ok := m.Param("pressure"); ok {
		t.Fatalf("expected missing param")
	}
}
