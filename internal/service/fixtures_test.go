package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/fleet-helpdesk/internal/domain"
	"github.com/spec-kit/fleet-helpdesk/internal/repository"
	"github.com/spec-kit/fleet-helpdesk/internal/storage"
)

const testBucket = "helpdesk-test"

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type published struct {
	topic   string
	event   string
	payload any
}

type recordingSink struct {
	mu    sync.Mutex
	calls []published
	err   error
}

func (s *recordingSink) Publish(_ context.Context, topic, event string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, published{topic: topic, event: event, payload: payload})
	return s.err
}

func (s *recordingSink) events() []published {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]published(nil), s.calls...)
}

type dropCounter struct {
	mu     sync.Mutex
	topics []string
}

func (d *dropCounter) NotificationDropped(topic string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.topics = append(d.topics, topic)
}

// faultyBucket injects failures in front of a real bucket.
type faultyBucket struct {
	storage.Bucket
	ensureErr error
	putErr    error
	listErr   error
}

func (b *faultyBucket) EnsureBucket(ctx context.Context, name string) error {
	if b.ensureErr != nil {
		return b.ensureErr
	}
	return b.Bucket.EnsureBucket(ctx, name)
}

func (b *faultyBucket) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	return b.Bucket.Put(ctx, bucket, key, body, contentType)
}

func (b *faultyBucket) ListByPrefix(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.Bucket.ListByPrefix(ctx, bucket, prefix)
}

// faultyHelpdesks injects failures in front of the in-memory repository.
type faultyHelpdesks struct {
	*repository.MemoryHelpdeskRepository
	createErr error
	updateErr error
	touchErr  error
	lastErr   error
}

func (r *faultyHelpdesks) Create(ctx context.Context, h *domain.Helpdesk) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryHelpdeskRepository.Create(ctx, h)
}

func (r *faultyHelpdesks) Update(ctx context.Context, h *domain.Helpdesk) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.MemoryHelpdeskRepository.Update(ctx, h)
}

func (r *faultyHelpdesks) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	return r.MemoryHelpdeskRepository.TouchLastMessage(ctx, id, at)
}

func (r *faultyHelpdesks) LastTicketNumber(ctx context.Context, prefix string) (string, error) {
	if r.lastErr != nil {
		return "", r.lastErr
	}
	return r.MemoryHelpdeskRepository.LastTicketNumber(ctx, prefix)
}

var errBoom = errors.New("boom")

// objectStore is a map backed bucket that, like S3, accepts keys with a leading slash.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: map[string][]byte{}}
}

func (o *objectStore) EnsureBucket(context.Context, string) error { return nil }

func (o *objectStore) Put(_ context.Context, bucket, key string, body []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[bucket+"|"+key] = append([]byte(nil), body...)
	return nil
}

func (o *objectStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	body, ok := o.objects[bucket+"|"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return body, nil
}

func (o *objectStore) ListByPrefix(_ context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	objects := []storage.ObjectInfo{}
	for k, body := range o.objects {
		key := strings.TrimPrefix(k, bucket+"|")
		if key != k && strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(body))})
		}
	}
	return objects, nil
}

func (o *objectStore) keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make([]string, 0, len(o.objects))
	for k := range o.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fixture struct {
	users     *repository.MemoryUserRepository
	helpdesks *faultyHelpdesks
	bucket    *faultyBucket
	sink      *recordingSink
	drops     *dropCounter
	clock     *fakeClock
	deps      HelpdeskDependencies
	tickets   *HelpdeskService
	messages  *MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     repository.NewMemoryUserRepository(),
		helpdesks: &faultyHelpdesks{MemoryHelpdeskRepository: repository.NewMemoryHelpdeskRepository()},
		bucket:    &faultyBucket{Bucket: storage.NewFSBucket(t.TempDir())},
		sink:      &recordingSink{},
		drops:     &dropCounter{},
		clock:     &fakeClock{now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC), step: time.Millisecond},
	}
	deps := HelpdeskDependencies{
		HelpdeskRepo: f.helpdesks,
		UserRepo:     f.users,
		Bucket:       f.bucket,
		BucketName:   testBucket,
		Sink:         f.sink,
		SupportTopic: "helpdesk:support",
		Drops:        f.drops,
		Clock:        f.clock.Now,
	}
	f.deps = deps
	f.tickets = NewHelpdeskService(deps)
	f.messages = NewMessageService(deps)
	return f
}

func (f *fixture) user(t *testing.T, role domain.UserRole) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:  string(role),
		Email: uuid.NewString() + "@fleet.test",
		Role:  role,
	}
	if err := f.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) openTicket(t *testing.T, clientID string) *domain.Helpdesk {
	t.Helper()
	h, err := f.tickets.CreateTicket(context.Background(), CreateHelpdeskInput{
		ClientID:    clientID,
		Title:       "Vehicle list empty",
		Description: "The vehicles page shows nothing",
		Category:    domain.HelpdeskCategoryBug,
	})
	if err != nil {
		t.Fatalf("CreateTicket returned error: %v", err)
	}
	return h
}

func strPtr(s string) *string { return &s }

func statusPtr(s domain.HelpdeskStatus) *domain.HelpdeskStatus { return &s }
