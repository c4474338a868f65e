package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

type recordingPublisher struct {
	mu    sync.Mutex
	leads []domain.Lead
}

func (p *recordingPublisher) Publish(lead domain.Lead) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leads = append(p.leads, lead)
}

func strPtr(s string) *string { return &s }

func TestLeadUseCase_IngestFromWebhook(t *testing.T) {
	tenantID := uuid.New()

	t.Run("Successful Ingestion", func(t *testing.T) {
		repo := &mocks.MockLeadRepository{}
		queue := &mocks.MockNotificationQueue{}
		pub := &recordingPublisher{}
		uc := NewLeadUseCase(repo, queue, pub, logger.Discard())

		lead, err := uc.IngestFromWebhook(context.Background(), tenantID, LeadPayload{
			CustomerName:  "  Maria Souza ",
			CustomerEmail: strPtr("maria@example.com"),
			CustomerPhone: strPtr(""),
			Source:        strPtr("portal"),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if repo.Count() != 1 {
			t.Fatalf("expected 1 lead stored, got %d", repo.Count())
		}
		stored := repo.Leads[0]
		if stored.TenantID != tenantID {
			t.Errorf("expected tenant %s, got %s", tenantID, stored.TenantID)
		}
		if stored.Status != domain.LeadStatusNew {
			t.Errorf("expected status NEW, got %s", stored.Status)
		}
		if stored.AssignedTo != nil {
			t.Error("webhook leads must be unassigned")
		}
		if stored.CustomerName != "Maria Souza" {
			t.Errorf("expected trimmed name, got %q", stored.CustomerName)
		}
		if stored.CustomerPhone != nil {
			t.Error("expected blank phone to be stored as absent")
		}

		if len(queue.Enqueued) != 1 {
			t.Fatalf("expected 1 notification enqueued, got %d", len(queue.Enqueued))
		}
		ev := queue.Enqueued[0]
		if ev.LeadID != lead.ID || ev.TenantID != tenantID || ev.EventType != domain.EventLeadCreated {
			t.Errorf("unexpected event %+v", ev)
		}
		if len(pub.leads) != 1 || pub.leads[0].ID != lead.ID {
			t.Error("expected lead to be published to the live feed")
		}
	})

	t.Run("Validation Error", func(t *testing.T) {
		repo := &mocks.MockLeadRepository{}
		queue := &mocks.MockNotificationQueue{}
		uc := NewLeadUseCase(repo, queue, nil, logger.Discard())

		_, err := uc.IngestFromWebhook(context.Background(), tenantID, LeadPayload{
			CustomerName:  "   ",
			CustomerEmail: strPtr("not-an-email"),
			Notes:         strPtr(strings.Repeat("x", 5001)),
		})

		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		want := map[string]string{
			"customer_name":  "is required",
			"customer_email": "must be a valid email address",
			"notes":          "must be at most 5000 characters",
		}
		for field, msg := range want {
			if got := verr.Fields[field]; len(got) != 1 || got[0] != msg {
				t.Errorf("field %s: got %v, want [%s]", field, got, msg)
			}
		}
		if repo.Count() != 0 || len(queue.Enqueued) != 0 {
			t.Error("invalid payloads must not create leads or notifications")
		}
	})

	t.Run("Null Email Is Accepted", func(t *testing.T) {
		repo := &mocks.MockLeadRepository{}
		uc := NewLeadUseCase(repo, nil, nil, logger.Discard())

		if _, err := uc.IngestFromWebhook(context.Background(), tenantID, LeadPayload{CustomerName: "João"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Repository Error", func(t *testing.T) {
		repo := &mocks.MockLeadRepository{CreateErr: errors.New("connection refused")}
		queue := &mocks.MockNotificationQueue{}
		uc := NewLeadUseCase(repo, queue, nil, logger.Discard())

		_, err := uc.IngestFromWebhook(context.Background(), tenantID, LeadPayload{CustomerName: "Ana"})
		if err == nil {
			t.Fatal("expected an error, got nil")
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			t.Error("storage failures must not look like validation errors")
		}
		if len(queue.Enqueued) != 0 {
			t.Error("no notification should be enqueued for a failed insert")
		}
	})

	t.Run("Enqueue Failure Does Not Fail Ingestion", func(t *testing.T) {
		repo := &mocks.MockLeadRepository{}
		queue := &mocks.MockNotificationQueue{EnqueueErr: errors.New("redis down and WAL full")}
		uc := NewLeadUseCase(repo, queue, nil, logger.Discard())

		if _, err := uc.IngestFromWebhook(context.Background(), tenantID, LeadPayload{CustomerName: "Ana"}); err != nil {
			t.Fatalf("expected lead to be accepted, got %v", err)
		}
		if repo.Count() != 1 {
			t.Error("expected lead to be stored")
		}
	})
}

func TestLeadUseCase_CreateForActor(t *testing.T) {
	tenantID := uuid.New()
	broker := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker, TenantID: &tenantID}
	admin := &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &tenantID}
	super := &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}

	repo := &mocks.MockLeadRepository{}
	uc := NewLeadUseCase(repo, &mocks.MockNotificationQueue{}, nil, logger.Discard())

	lead, err := uc.CreateForActor(context.Background(), broker, LeadPayload{CustomerName: "Carla"})
	if err != nil {
		t.Fatalf("broker create: %v", err)
	}
	if lead.AssignedTo == nil || *lead.AssignedTo != broker.ID {
		t.Error("broker should be assigned to their own lead")
	}

	lead, err = uc.CreateForActor(context.Background(), admin, LeadPayload{CustomerName: "Davi"})
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if lead.AssignedTo != nil {
		t.Error("admin-created leads start unassigned")
	}

	if _, err := uc.CreateForActor(context.Background(), super, LeadPayload{CustomerName: "Eva"}); !errors.Is(err, domain.ErrNoTenant) {
		t.Errorf("expected ErrNoTenant for SuperAdmin without agency, got %v", err)
	}
}

func TestLeadUseCase_ListScopes(t *testing.T) {
	tenantID, otherTenant := uuid.New(), uuid.New()
	broker := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker, TenantID: &tenantID}
	admin := &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &tenantID}
	super := &domain.Profile{ID: uuid.New(), Role: domain.RoleSuperAdmin}

	repo := &mocks.MockLeadRepository{Leads: []domain.Lead{
		{ID: uuid.New(), TenantID: tenantID, AssignedTo: &broker.ID},
		{ID: uuid.New(), TenantID: tenantID},
		{ID: uuid.New(), TenantID: otherTenant},
	}}
	uc := NewLeadUseCase(repo, nil, nil, logger.Discard())

	cases := []struct {
		actor *domain.Profile
		want  int
	}{
		{broker, 1},
		{admin, 2},
		{super, 3},
	}
	for _, c := range cases {
		leads, err := uc.List(context.Background(), c.actor, 50)
		if err != nil {
			t.Fatalf("%s: %v", c.actor.Role, err)
		}
		if len(leads) != c.want {
			t.Errorf("%s: expected %d leads, got %d", c.actor.Role, c.want, len(leads))
		}
	}
	if repo.LastList.Limit != 50 {
		t.Errorf("expected limit to be passed through, got %d", repo.LastList.Limit)
	}

	orphan := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker}
	if _, err := uc.List(context.Background(), orphan, 10); !errors.Is(err, domain.ErrNoTenant) {
		t.Errorf("expected ErrNoTenant, got %v", err)
	}
}
