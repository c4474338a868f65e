package projection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/V4T54L/leadhub/internal/domain"
)

// EventTypeKey is the payload key carrying the event type.
const EventTypeKey = "event_type"

// entityOrder fixes the order of top-level entity keys in the payload.
var entityOrder = []string{domain.EntityLead, domain.EntityAgent, domain.EntityAgency}

type field struct {
	name  string
	value any
}

type section struct {
	key    string
	fields []field
}

// Payload is a projected notification body. It marshals to JSON with a fixed
// key order: event_type first, then lead, agent and agency, each with fields in
// the order the projection lists them.
type Payload struct {
	eventType    string
	hasEventType bool
	sections     []section
}

// Project reduces a snapshot to the fields allowed by the projection.
// Entities with an empty field list, or absent from the snapshot, are left out.
// Configured fields the entity does not carry, or carries as nil, are left out.
func Project(snap domain.Snapshot, cfg domain.PayloadProjection) Payload {
	p := Payload{
		eventType:    snap.EventType,
		hasEventType: cfg.IncludeEventType,
	}

	for _, key := range entityOrder {
		names := cfg.FieldsFor(key)
		entity := snap.Entity(key)
		if len(names) == 0 || entity == nil {
			continue
		}

		s := section{key: key}
		seen := make(map[string]struct{}, len(names))
		for _, name := range names {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}

			v, ok := entity[name]
			if !ok || v == nil {
				continue
			}
			s.fields = append(s.fields, field{name: name, value: v})
		}
		if len(s.fields) == 0 {
			continue
		}
		p.sections = append(p.sections, s)
	}
	return p
}

// Has reports whether a top-level key is present in the payload.
func (p Payload) Has(key string) bool {
	if key == EventTypeKey {
		return p.hasEventType
	}
	for _, s := range p.sections {
		if s.key == key {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true

	writeKey := func(k string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
	}

	if p.hasEventType {
		writeKey(EventTypeKey)
		vb, err := json.Marshal(p.eventType)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}

	for _, s := range p.sections {
		writeKey(s.key)
		buf.WriteByte('{')
		for i, f := range s.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(f.name)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := json.Marshal(f.value)
			if err != nil {
				return nil, fmt.Errorf("marshal %s.%s: %w", s.key, f.name, err)
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
