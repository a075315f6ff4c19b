// Package message defines the immutable unit of communication routed across
// the Corpus Callosum: a Message carries a payload between the Internal and
// External tracts and is never mutated after construction.
package message

import "fmt"

// Tract identifies one of the two logical domains connected by the Corpus
// Callosum. Internal agents plan and reflect; External agents actuate.
type Tract string

const (
	// Internal is the planning/reflection tract (T_int).
	Internal Tract = "internal"
	// External is the environmental-actuation tract (T_ext).
	External Tract = "external"
)

// String implements fmt.Stringer.
func (t Tract) String() string { return string(t) }

// Valid reports whether t is one of the two recognized tracts.
func (t Tract) Valid() bool { return t == Internal || t == External }

// Priority orders messages for scheduling. Higher numeric value schedules
// first; the zero value is not a valid priority.
type Priority int

const (
	Low      Priority = 1
	Normal   Priority = 2
	High     Priority = 3
	Urgent   Priority = 4
	Critical Priority = 5
)

// String renders the priority's lowercase symbolic name. EventLogEntry
// stores the integer level, not this name.
func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Urgent:
		return "urgent"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Valid reports whether p is one of the five recognized priority levels.
func (p Priority) Valid() bool { return p >= Low && p <= Critical }

// Message is an immutable record routed between tracts by the Corpus
// Callosum. Construction via New is the only mutator; every field is set
// once and never changed afterward.
type Message struct {
	id          int64
	source      Tract
	dest        Tract
	priority    Priority
	timestampMs int64
	payload     any
	payloadSize int
}

// New constructs a Message. id and timestampMs are supplied by the caller
// (the Corpus Callosum assigns the id under its id lock and reads the
// timestamp from its Clock) so that
// construction itself performs no I/O and cannot fail on anything but
// caller-supplied invalid tracts or priorities.
func New(id int64, source, dest Tract, priority Priority, timestampMs int64, payload any, payloadSize int) (Message, error) {
	if !source.Valid() {
		return Message{}, fmt.Errorf("message: invalid source tract %q", source)
	}
	if !dest.Valid() {
		return Message{}, fmt.Errorf("message: invalid dest tract %q", dest)
	}
	if !priority.Valid() {
		return Message{}, fmt.Errorf("message: invalid priority %d", priority)
	}
	return Message{
		id:          id,
		source:      source,
		dest:        dest,
		priority:    priority,
		timestampMs: timestampMs,
		payload:     payload,
		payloadSize: payloadSize,
	}, nil
}

// ID returns the monotonically assigned message id.
func (m Message) ID() int64 { return m.id }

// Source returns the originating tract.
func (m Message) Source() Tract { return m.source }

// Dest returns the destination tract.
func (m Message) Dest() Tract { return m.dest }

// Priority returns the scheduling priority.
func (m Message) Priority() Priority { return m.priority }

// TimestampMs returns the message's creation time in milliseconds since epoch.
func (m Message) TimestampMs() int64 { return m.timestampMs }

// Payload returns the opaque payload carried by the message.
func (m Message) Payload() any { return m.payload }

// PayloadSize returns the payload-size hint in bytes.
func (m Message) PayloadSize() int { return m.payloadSize }

// SelfAddressed reports whether source and dest are the same tract. Such
// messages are legal, count toward total traffic, but are excluded from
// directional dialogue-balance counters (spec invariant).
func (m Message) SelfAddressed() bool { return m.source == m.dest }

// PayloadTypeTag returns a short type tag for the payload, suitable for the
// payload_type field of an EventLogEntry. The core never persists payload
// bodies, only this tag.
func (m Message) PayloadTypeTag() string {
	return fmt.Sprintf("%T", m.payload)
}
