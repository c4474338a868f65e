package projection

import (
	"encoding/json"
	"testing"

	"github.com/V4T54L/leadhub/internal/domain"
)

func fullSnapshot() domain.Snapshot {
	return domain.Snapshot{
		EventType: "lead_assigned",
		Lead: domain.Fields{
			"id":             "a1b2c3d4",
			"customer_name":  "Maria Oliveira",
			"customer_phone": "21988887777",
			"status":         "NEW",
			"source":         "Portal",
		},
		Agent: domain.Fields{
			"id":    "e5f6g7h8",
			"email": "corretor@imobiliaria.com",
		},
		Agency: domain.Fields{
			"id":   "i9j0k1l2",
			"name": "Imobiliaria Feliz",
		},
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		snapshot domain.Snapshot
		config   domain.PayloadProjection
		expected string
	}{
		{
			name:     "Selected fields with event type",
			snapshot: fullSnapshot(),
			config: domain.PayloadProjection{
				IncludeEventType: true,
				Lead:             []string{"id", "customer_name"},
				Agent:            []string{},
				Agency:           []string{"name"},
			},
			expected: `{"event_type":"lead_assigned","lead":{"id":"a1b2c3d4","customer_name":"Maria Oliveira"},"agency":{"name":"Imobiliaria Feliz"}}`,
		},
		{
			name:     "Field order follows configuration",
			snapshot: fullSnapshot(),
			config: domain.PayloadProjection{
				Lead: []string{"status", "customer_name", "id"},
			},
			expected: `{"lead":{"status":"NEW","customer_name":"Maria Oliveira","id":"a1b2c3d4"}}`,
		},
		{
			name:     "Missing snapshot fields are omitted",
			snapshot: fullSnapshot(),
			config: domain.PayloadProjection{
				Lead: []string{"customer_email", "notes", "id"},
			},
			expected: `{"lead":{"id":"a1b2c3d4"}}`,
		},
		{
			name:     "Entity with only missing fields is omitted",
			snapshot: fullSnapshot(),
			config: domain.PayloadProjection{
				Lead:  []string{"notes"},
				Agent: []string{"email"},
			},
			expected: `{"agent":{"email":"corretor@imobiliaria.com"}}`,
		},
		{
			name: "Entity with only nil fields is omitted",
			snapshot: domain.Snapshot{
				Lead:   domain.Fields{"id": "x", "notes": nil, "source": nil},
				Agency: domain.Fields{"name": "Casa"},
			},
			config: domain.PayloadProjection{
				Lead:   []string{"notes", "source"},
				Agency: []string{"name"},
			},
			expected: `{"agency":{"name":"Casa"}}`,
		},
		{
			name: "Absent entity is omitted",
			snapshot: domain.Snapshot{
				EventType: "lead_created",
				Lead:      domain.Fields{"id": "x"},
			},
			config: domain.PayloadProjection{
				IncludeEventType: true,
				Lead:             []string{"id"},
				Agent:            []string{"id", "email"},
			},
			expected: `{"event_type":"lead_created","lead":{"id":"x"}}`,
		},
		{
			name:     "Nothing configured",
			snapshot: fullSnapshot(),
			config:   domain.PayloadProjection{},
			expected: `{}`,
		},
		{
			name: "Nil values are omitted, other types preserved",
			snapshot: domain.Snapshot{
				Agency: domain.Fields{"id": "i9", "is_active": false, "name": nil},
			},
			config: domain.PayloadProjection{
				Agency: []string{"id", "name", "is_active"},
			},
			expected: `{"agency":{"id":"i9","is_active":false}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(Project(tt.snapshot, tt.config))
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("projection mismatch:\n got  %s\n want %s", got, tt.expected)
			}
		})
	}
}

func TestProjectDeterministic(t *testing.T) {
	cfg := domain.DefaultProjection()
	snap := fullSnapshot()

	first, err := json.Marshal(Project(snap, cfg))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, _ := json.Marshal(Project(snap, cfg))
		if string(again) != string(first) {
			t.Fatalf("iteration %d produced different bytes: %s vs %s", i, again, first)
		}
	}
}

func TestProjectOnlyConfiguredKeys(t *testing.T) {
	cfg := domain.PayloadProjection{
		Lead:   []string{"id", "status", "customer_phone"},
		Agency: []string{"id"},
	}
	snap := fullSnapshot()

	raw, err := json.Marshal(Project(snap, cfg))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	for entity, fields := range decoded {
		allowed := map[string]bool{}
		for _, f := range cfg.FieldsFor(entity) {
			allowed[f] = true
		}
		for name, value := range fields {
			if !allowed[name] {
				t.Errorf("%s.%s is not in the projection", entity, name)
			}
			if value != snap.Entity(entity)[name] {
				t.Errorf("%s.%s = %v, want %v", entity, name, value, snap.Entity(entity)[name])
			}
		}
	}
	if _, ok := decoded["agent"]; ok {
		t.Error("agent should not be present")
	}
}
