package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestPayloadProjectionNormalize(t *testing.T) {
	p := PayloadProjection{
		IncludeEventType: true,
		Lead:             []string{"customer_name", "id", "customer_name"},
		Agency:           []string{"name"},
	}

	got, err := p.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"customer_name", "id"}; !reflect.DeepEqual(got.Lead, want) {
		t.Errorf("lead fields = %v, want %v", got.Lead, want)
	}
	if len(got.Agent) != 0 {
		t.Errorf("agent fields = %v, want empty", got.Agent)
	}
	if !got.IncludeEventType {
		t.Error("include_event_type should be preserved")
	}

	_, err = PayloadProjection{Agent: []string{"password"}}.Normalize()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["payload_projection.agent"]; !ok {
		t.Errorf("expected error keyed by payload_projection.agent, got %v", verr.Fields)
	}
}

func TestSendConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"empty url opts out", "", false},
		{"https url", "https://hooks.example.com/crm", false},
		{"http url", "http://localhost:5678/webhook", false},
		{"relative url", "/webhook", true},
		{"ftp url", "ftp://example.com", true},
		{"garbage", "not a url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SendConfig{SendURL: tt.url, Projection: DefaultProjection()}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
