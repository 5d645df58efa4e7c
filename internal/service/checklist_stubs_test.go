package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
	appErrors "github.com/noah-isme/internquest-api/pkg/errors"
	"github.com/noah-isme/internquest-api/pkg/jobs"
)

type memProfileStore struct {
	mu         sync.Mutex
	profiles   map[string]*models.StudentProfile
	getErr     error
	updateErr  error
	getCalls   int
	updates    int
	promoteErr error
	promoted   []string
}

func newMemProfileStore(profiles ...*models.StudentProfile) *memProfileStore {
	store := &memProfileStore{profiles: make(map[string]*models.StudentProfile)}
	for _, p := range profiles {
		store.profiles[p.UserID] = p
	}
	return store
}

func (m *memProfileStore) GetByUserID(_ context.Context, userID string) (*models.StudentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *p
	clone.Requirements = append([]byte(nil), p.Requirements...)
	return &clone, nil
}

func (m *memProfileStore) UpdateRequirements(_ context.Context, userID string, payload []byte, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.profiles[userID]
	if !ok {
		return sql.ErrNoRows
	}
	m.updates++
	p.Requirements = append([]byte(nil), payload...)
	p.UpdatedAt = updatedAt
	return nil
}

func (m *memProfileStore) PromoteToHired(_ context.Context, userID string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promoteErr != nil {
		return false, m.promoteErr
	}
	p, ok := m.profiles[userID]
	if !ok || p.Status == models.ProfileHired || p.AppliedCompanyID == nil {
		return false, nil
	}
	p.Status = models.ProfileHired
	company := *p.AppliedCompanyID
	p.FinalCompanyID = &company
	m.promoted = append(m.promoted, userID)
	return true, nil
}

func (m *memProfileStore) stored(t *testing.T, userID string) []models.Requirement {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs, version, err := models.DecodeStoredRequirements(m.profiles[userID].Requirements)
	require.NoError(t, err)
	require.Equal(t, models.RequirementSchemaVersion, version)
	return reqs
}

type memTemplateSource struct {
	items []models.TemplateDoc
	err   error
}

func (m *memTemplateSource) List(_ context.Context, _ models.TemplateKind) ([]models.TemplateDoc, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

type memApprovalStore struct {
	mu        sync.Mutex
	records   []models.ApprovalRecord
	listErr   error
	upsertErr error
	upserts   []models.ApprovalRecord
}

func (m *memApprovalStore) ListByStudent(_ context.Context, studentID string) ([]models.ApprovalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.ApprovalRecord
	for _, r := range m.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memApprovalStore) Upsert(_ context.Context, record *models.ApprovalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if record.ID == "" {
		record.ID = "approval-" + record.Key
	}
	m.upserts = append(m.upserts, *record)
	for i := range m.records {
		if m.records[i].StudentID == record.StudentID && m.records[i].Key == record.Key {
			m.records[i] = *record
			return nil
		}
	}
	m.records = append(m.records, *record)
	return nil
}

type memDiagnostics struct {
	entries []models.Diagnostic
}

func (m *memDiagnostics) RecordDiagnostic(_ context.Context, _ string, diag models.Diagnostic) error {
	m.entries = append(m.entries, diag)
	return nil
}

type memDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (m *memDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type memBlobStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	putErr    error
	deleteErr error
	signErr   error
	deleted   []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memBlobStore) Put(_ context.Context, objectPath string, r io.Reader, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath] = raw
	m.types[objectPath] = contentType
	return nil
}

func (m *memBlobStore) Delete(_ context.Context, objectPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, objectPath)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, objectPath)
	return nil
}

func (m *memBlobStore) SignedURL(_ context.Context, owner, objectPath string) (string, time.Time, error) {
	if m.signErr != nil {
		return "", time.Time{}, m.signErr
	}
	return "https://files.example.com/" + objectPath + "?owner=" + owner, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (m *memBlobStore) paths(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for p := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

type memAuditLog struct {
	logs []*models.AuditLog
}

func (m *memAuditLog) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

// memCacheRepo supports the trailing "*" patterns used for invalidation.
type memCacheRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (m *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.store {
		if key == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(key, prefix)) {
			delete(m.store, key)
		}
	}
	return nil
}

func (m *memCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[key]
	return ok
}

func storedProfile(t *testing.T, userID string, reqs []models.Requirement) *models.StudentProfile {
	t.Helper()
	profile := &models.StudentProfile{UserID: userID, Email: userID + "@example.com", FullName: "Student " + userID, Status: models.ProfileApplying}
	if reqs != nil {
		payload, err := models.EncodeStoredRequirements(reqs)
		require.NoError(t, err)
		profile.Requirements = payload
	}
	return profile
}

func canonicalRequirements() []models.Requirement {
	return freshRequirements(models.DefaultRequirementDefinitions())
}
