package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/QctheGithuber/seckillweb/seckill/domain"

	"github.com/google/uuid"
)

func markKey(resourceID, userID int64) string {
	return fmt.Sprintf("%d:%d", resourceID, userID)
}

// fakeAdmission espelha a semântica serializada do script real: dedup
// antes de estoque, decremento e marca dentro da mesma seção crítica.
type fakeAdmission struct {
	mu       sync.Mutex
	counters map[int64]int64
	claimed  map[string]bool

	admitErr       error
	ensureErr      error
	compensateErr  error
	forceNoCounter bool

	admits        int
	compensations int
}

func newFakeAdmission() *fakeAdmission {
	return &fakeAdmission{
		counters: make(map[int64]int64),
		claimed:  make(map[string]bool),
	}
}

func (f *fakeAdmission) Admit(_ context.Context, resourceID, userID int64) (domain.AdmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.admits++
	if f.admitErr != nil {
		return 0, f.admitErr
	}
	if f.forceNoCounter {
		return domain.AdmissionNoCounter, nil
	}
	if f.claimed[markKey(resourceID, userID)] {
		return domain.AdmissionAlreadyClaimed, nil
	}
	c, ok := f.counters[resourceID]
	if !ok {
		return domain.AdmissionNoCounter, nil
	}
	if c <= 0 {
		return domain.AdmissionNoStock, nil
	}
	f.counters[resourceID] = c - 1
	f.claimed[markKey(resourceID, userID)] = true
	return domain.AdmissionGranted, nil
}

func (f *fakeAdmission) EnsureCounter(_ context.Context, resourceID, stock int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ensureErr != nil {
		return false, f.ensureErr
	}
	if _, ok := f.counters[resourceID]; ok {
		return false, nil
	}
	f.counters[resourceID] = stock
	return true, nil
}

func (f *fakeAdmission) Compensate(_ context.Context, resourceID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.compensateErr != nil {
		return f.compensateErr
	}
	f.counters[resourceID]++
	delete(f.claimed, markKey(resourceID, userID))
	f.compensations++
	return nil
}

func (f *fakeAdmission) Remaining(_ context.Context, resourceID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.counters[resourceID]
	return c, ok, nil
}

func (f *fakeAdmission) Reset(_ context.Context, resourceID, stock int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.counters[resourceID] = stock
	prefix := fmt.Sprintf("%d:", resourceID)
	for k := range f.claimed {
		if strings.HasPrefix(k, prefix) {
			delete(f.claimed, k)
		}
	}
	return nil
}

func (f *fakeAdmission) counter(resourceID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[resourceID]
}

func (f *fakeAdmission) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claimed)
}

// fakeLedger aplica as mesmas regras do Postgres: decremento condicional
// com predicado stock > 0 e unicidade por (user, resource), na mesma
// "transação" (seção crítica).
type fakeLedger struct {
	mu           sync.Mutex
	resources    map[int64]*domain.Resource
	reservations map[string]domain.Reservation

	commitErr     error
	commitErrOnce bool

	gets int
}

func newFakeLedger(resources ...domain.Resource) *fakeLedger {
	l := &fakeLedger{
		resources:    make(map[int64]*domain.Resource),
		reservations: make(map[string]domain.Reservation),
	}
	for i := range resources {
		r := resources[i]
		l.resources[r.ID] = &r
	}
	return l
}

func (l *fakeLedger) ListResources(_ context.Context) ([]domain.Resource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Resource, 0, len(l.resources))
	for _, r := range l.resources {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *fakeLedger) GetResource(_ context.Context, id int64) (domain.Resource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gets++
	r, ok := l.resources[id]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return *r, nil
}

func (l *fakeLedger) CreateResource(_ context.Context, name, description string, initialStock int64) (domain.Resource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := domain.Resource{
		ID:           int64(len(l.resources) + 1),
		Name:         name,
		Description:  description,
		InitialStock: initialStock,
		Stock:        initialStock,
	}
	l.resources[r.ID] = &r
	return r, nil
}

func (l *fakeLedger) CommitReservation(_ context.Context, userID, resourceID int64) (domain.Reservation, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.commitErr != nil {
		err := l.commitErr
		if l.commitErrOnce {
			l.commitErr = nil
		}
		return domain.Reservation{}, 0, err
	}

	r, ok := l.resources[resourceID]
	if !ok || r.Stock <= 0 {
		return domain.Reservation{}, 0, domain.ErrDurableWriteConflict
	}
	key := markKey(resourceID, userID)
	if _, dup := l.reservations[key]; dup {
		return domain.Reservation{}, 0, domain.ErrDuplicateClaim
	}

	r.Stock--
	res := domain.Reservation{
		ID:         uuid.New(),
		UserID:     userID,
		ResourceID: resourceID,
		CreatedAt:  time.Now().UTC(),
	}
	l.reservations[key] = res
	return res, r.Stock, nil
}

func (l *fakeLedger) ResetStock(_ context.Context, id int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.resources[id]
	if !ok {
		return 0, domain.ErrResourceNotFound
	}
	r.Stock = r.InitialStock
	return r.Stock, nil
}

func (l *fakeLedger) stock(id int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resources[id].Stock
}

func (l *fakeLedger) reservationCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.reservations)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[int64]domain.ResourceSnapshot

	getErr error
	putErr error

	puts int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]domain.ResourceSnapshot)}
}

func (c *fakeCache) Get(_ context.Context, resourceID int64) (domain.ResourceSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return domain.ResourceSnapshot{}, false, c.getErr
	}
	snap, ok := c.entries[resourceID]
	return snap, ok, nil
}

func (c *fakeCache) Put(_ context.Context, snap domain.ResourceSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.putErr != nil {
		return c.putErr
	}
	c.entries[snap.ID] = snap
	c.puts++
	return nil
}

func (c *fakeCache) snapshot(resourceID int64) (domain.ResourceSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[resourceID]
	return snap, ok
}
