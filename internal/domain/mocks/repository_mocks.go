package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// MockLeadRepository is an in-memory domain.LeadRepository.
type MockLeadRepository struct {
	mu        sync.Mutex
	Leads     []domain.Lead
	CreateErr error
	FindErr   error
	ListErr   error
	LastList  domain.LeadFilter
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Leads = append(m.Leads, *lead)
	return nil
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for i := range m.Leads {
		if m.Leads[i].ID == id {
			l := m.Leads[i]
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockLeadRepository) List(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastList = filter
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []domain.Lead
	for _, l := range m.Leads {
		if filter.TenantID != nil && l.TenantID != *filter.TenantID {
			continue
		}
		if filter.AssignedTo != nil && (l.AssignedTo == nil || *l.AssignedTo != *filter.AssignedTo) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Count returns the number of stored leads.
func (m *MockLeadRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Leads)
}

// MockTenantRepository is an in-memory domain.TenantRepository.
type MockTenantRepository struct {
	mu        sync.Mutex
	Tenants   map[uuid.UUID]*domain.Tenant
	FindErr   error
	CreateErr error
	Deleted   []uuid.UUID
}

func NewMockTenantRepository(tenants ...*domain.Tenant) *MockTenantRepository {
	m := &MockTenantRepository{Tenants: make(map[uuid.UUID]*domain.Tenant)}
	for _, t := range tenants {
		m.Tenants[t.ID] = t
	}
	return m
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	t, ok := m.Tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tenants[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	tenant.ID = uuid.New()
	tenant.CreatedAt = time.Now().UTC()
	cp := *tenant
	m.Tenants[tenant.ID] = &cp
	return nil
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tenants[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.Tenants, id)
	m.Deleted = append(m.Deleted, id)
	return nil
}

func (m *MockTenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Tenant, 0, len(m.Tenants))
	for _, t := range m.Tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MockProfileRepository serves profiles, optionally failing the first lookups
// with ErrNotFound to imitate asynchronous provisioning.
type MockProfileRepository struct {
	mu            sync.Mutex
	Profiles      map[uuid.UUID]*domain.Profile
	NotFoundUntil int // lookups numbered <= NotFoundUntil return ErrNotFound
	FindErr       error
	CreateErr     error
	Calls         int
}

func NewMockProfileRepository(profiles ...*domain.Profile) *MockProfileRepository {
	m := &MockProfileRepository{Profiles: make(map[uuid.UUID]*domain.Profile)}
	for _, p := range profiles {
		m.Profiles[p.ID] = p
	}
	return m
}

func (m *MockProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if m.Calls <= m.NotFoundUntil {
		return nil, domain.ErrNotFound
	}
	p, ok := m.Profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Put stores or replaces a profile.
func (m *MockProfileRepository) Put(p *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.Profiles[p.ID] = &cp
}

func (m *MockProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.Profiles[p.ID]; ok {
		return domain.ErrConflict
	}
	cp := *p
	m.Profiles[p.ID] = &cp
	return nil
}

func (m *MockProfileRepository) UpdateAccess(ctx context.Context, id uuid.UUID, role domain.Role, tenantID *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Role = role
	p.TenantID = tenantID
	return nil
}

func (m *MockProfileRepository) List(ctx context.Context) ([]domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UserSummary, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		out = append(out, domain.UserSummary{Profile: *p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// MockWebhookConfigRepository is an in-memory domain.WebhookConfigRepository
// enforcing the same uniqueness rules as the real table.
type MockWebhookConfigRepository struct {
	mu      sync.Mutex
	Configs map[uuid.UUID]*domain.WebhookConfig
	// InsertHook runs before an insert is applied; tests use it to simulate a racing writer.
	InsertHook  func()
	InsertCalls int
	FindErr     error
	UpdateErr   error
}

func NewMockWebhookConfigRepository() *MockWebhookConfigRepository {
	return &MockWebhookConfigRepository{Configs: make(map[uuid.UUID]*domain.WebhookConfig)}
}

func (m *MockWebhookConfigRepository) FindTenantIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return uuid.Nil, m.FindErr
	}
	for _, c := range m.Configs {
		if c.ReceiveToken == token {
			return c.TenantID, nil
		}
	}
	return uuid.Nil, domain.ErrNotFound
}

func (m *MockWebhookConfigRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.WebhookConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	c, ok := m.Configs[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockWebhookConfigRepository) Insert(ctx context.Context, cfg *domain.WebhookConfig) error {
	if m.InsertHook != nil {
		m.InsertHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if _, ok := m.Configs[cfg.TenantID]; ok {
		return domain.ErrConflict
	}
	for _, c := range m.Configs {
		if c.ReceiveToken == cfg.ReceiveToken {
			return domain.ErrConflict
		}
	}
	cp := *cfg
	m.Configs[cfg.TenantID] = &cp
	return nil
}

func (m *MockWebhookConfigRepository) UpdateToken(ctx context.Context, tenantID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	c, ok := m.Configs[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	c.ReceiveToken = token
	return nil
}

func (m *MockWebhookConfigRepository) UpdateSendConfig(ctx context.Context, tenantID uuid.UUID, sc domain.SendConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	c, ok := m.Configs[tenantID]
	if !ok {
		return domain.ErrNotFound
	}
	c.SendURL = sc.SendURL
	c.Projection = sc.Projection
	return nil
}

// MockNotificationQueue is an in-memory domain.NotificationQueue.
type MockNotificationQueue struct {
	mu              sync.Mutex
	Enqueued        []domain.NotificationEvent
	ReadBatchResult []domain.NotificationEvent
	StaleResult     []domain.NotificationEvent
	AckedMessageIDs []string
	DLQEvents       []domain.NotificationEvent
	EnqueueErr      error
	ReadErr         error
	AckErr          error
	DLQErr          error
}

func (m *MockNotificationQueue) Enqueue(ctx context.Context, event domain.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.Enqueued = append(m.Enqueued, event)
	return nil
}

func (m *MockNotificationQueue) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.NotificationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	out := m.ReadBatchResult
	m.ReadBatchResult = nil
	return out, nil
}

func (m *MockNotificationQueue) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.NotificationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.StaleResult
	m.StaleResult = nil
	return out, nil
}

func (m *MockNotificationQueue) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockNotificationQueue) MoveToDLQ(ctx context.Context, events []domain.NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEvents = append(m.DLQEvents, events...)
	return nil
}
