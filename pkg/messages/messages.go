// Package messages contains the concrete message types carried through
// the gateway: opaque data payloads, severity-tagged events, and ECU
// parameter frames.
package messages

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkivisto/ecugate/pkg/api"
)

// timeLayout is the rendering used by String methods.
const timeLayout = "2006-01-02 15:04:05"

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// Data is a message carrying an opaque string payload.
type Data struct {
	id        string
	payload   string
	timestamp time.Time
}

var _ api.Message = (*Data)(nil)

// NewData creates a data message. An empty id is replaced with a random
// UUID.
func NewData(id, payload string) *Data {
	return &Data{id: newID(id), payload: payload, timestamp: time.Now()}
}

func (d *Data) ID() string           { return d.id }
func (d *Data) Type() string         { return "data" }
func (d *Data) Timestamp() time.Time { return d.timestamp }

// Process is a no-op: data messages carry no behaviour of their own and
// are interpreted by the configured processor.
func (d *Data) Process() {}

// Payload returns the opaque payload.
func (d *Data) Payload() string { return d.payload }

func (d *Data) String() string {
	return fmt.Sprintf("[data] id=%s payload=%s ts=%s",
		d.id, d.payload, d.timestamp.Format(timeLayout))
}

// Severity classifies an Event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Event is a system event with a severity and a human-readable
// description.
type Event struct {
	id          string
	severity    Severity
	description string
	timestamp   time.Time
}

var _ api.Message = (*Event)(nil)

// NewEvent creates an event message. An empty id is replaced with a
// random UUID.
func NewEvent(id string, severity Severity, description string) *Event {
	return &Event{
		id:          newID(id),
		severity:    severity,
		description: description,
		timestamp:   time.Now(),
	}
}

func (e *Event) ID() string           { return e.id }
func (e *Event) Type() string         { return "event" }
func (e *Event) Timestamp() time.Time { return e.timestamp }

// Process is a no-op; event handling is the processor's job.
func (e *Event) Process() {}

// Severity returns the event severity.
func (e *Event) Severity() Severity { return e.severity }

// Description returns the event description.
func (e *Event) Description() string { return e.description }

func (e *Event) String() string {
	return fmt.Sprintf("[event] id=%s severity=%s description=%s ts=%s",
		e.id, e.severity, e.description, e.timestamp.Format(timeLayout))
}

// ECUData is a parameter frame received from a single ECU.
type ECUData struct {
	id        string
	ecuID     string
	params    map[string]string
	timestamp time.Time
}

var _ api.Message = (*ECUData)(nil)

// NewECUData creates an ECU data message. An empty id is replaced with
// a random UUID. The params map is copied, so the caller may reuse it.
func NewECUData(id, ecuID string, params map[string]string) *ECUData {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return &ECUData{
		id:        newID(id),
		ecuID:     ecuID,
		params:    copied,
		timestamp: time.Now(),
	}
}

func (m *ECUData) ID() string           { return m.id }
func (m *ECUData) Type() string         { return "ecu-data" }
func (m *ECUData) Timestamp() time.Time { return m.timestamp }

// Process is a no-op; the gateway processor stores and audits frames.
func (m *ECUData) Process() {}

// ECUID returns the identifier of the originating ECU.
func (m *ECUData) ECUID() string { return m.ecuID }

// Params returns a copy of the parameter map.
func (m *ECUData) Params() map[string]string {
	copied := make(map[string]string, len(m.params))
	for k, v := range m.params {
		copied[k] = v
	}
	return copied
}

// Param returns a single parameter value.
func (m *ECUData) Param(key string) (string, bool) {
	v, ok := m.params[key]
	return v, ok
}

func (m *ECUData) String() string {
	keys := make([]string, 0, len(m.params))
	for k := range m.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%s", k, m.params[k])
	}
	return fmt.Sprintf("[ecu-data] id=%s ecu=%s params={%s} ts=%s",
		m.id, m.ecuID, b.String(), m.timestamp.Format(timeLayout))
}
