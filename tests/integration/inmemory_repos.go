package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"affiliate-ledger/internal/core/domain"
	"affiliate-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- In-Memory Ledger Store ---

type inMemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
	trackers map[string]domain.Tracker
	balances []domain.Balance
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		accounts: make(map[uuid.UUID]domain.Account),
		trackers: make(map[string]domain.Tracker),
	}
}

func (s *inMemoryStore) addAccount(email string, commission float64, notify bool) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.Account{ID: uuid.New(), Email: email, Commission: commission, NotifyBalance: notify}
	s.accounts[a.ID] = a
	return a
}

func (s *inMemoryStore) addTracker(id string, accountID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackers[id] = domain.Tracker{ID: id, AccountID: accountID}
}

func (s *inMemoryStore) signups(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackers[id].StatisticsSignups
}

func (s *inMemoryStore) ledger() []domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Balance, len(s.balances))
	copy(out, s.balances)
	return out
}

// --- In-Memory Account Repository ---

type inMemoryAccountRepo struct {
	store *inMemoryStore
}

func (r *inMemoryAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.accounts {
		if existing.Email == a.Email {
			return ports.ErrAccountExists
		}
	}
	r.store.accounts[a.ID] = *a
	return nil
}

// --- In-Memory Transactor ---

// memTx stages ledger writes until Commit.
type memTx struct {
	pgx.Tx
	store   *inMemoryStore
	pending []domain.Balance
	done    bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.balances = append(t.store.balances, t.pending...)
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.pending = nil
	return nil
}

type inMemoryTransactor struct {
	store *inMemoryStore
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{store: t.store}, nil
}

// --- In-Memory Tracker Repo ---

type inMemoryTrackerRepo struct {
	store *inMemoryStore
}

func (r *inMemoryTrackerRepo) FindWithAccount(ctx context.Context, tx pgx.Tx, id string) (*domain.Tracker, *domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.trackers[id]
	if !ok {
		return nil, nil, nil
	}
	a, ok := r.store.accounts[t.AccountID]
	if !ok {
		return nil, nil, nil
	}
	return &t, &a, nil
}

// IncrementSignups performs the read and the write under one lock, the way
// a single UPDATE ... RETURNING does.
func (r *inMemoryTrackerRepo) IncrementSignups(ctx context.Context, id string, now time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.trackers[id]
	if !ok {
		return 0, ports.ErrTrackerNotFound
	}
	t.StatisticsSignups++
	t.UpdatedAt = now
	r.store.trackers[id] = t
	return t.StatisticsSignups, nil
}

// naiveTrackerRepo reads the counter and writes it back in two separate
// steps. readers holds every caller between its read and its write so that
// all of them observe the same starting value.
type naiveTrackerRepo struct {
	inMemoryTrackerRepo
	readers *sync.WaitGroup
}

func (r *naiveTrackerRepo) IncrementSignups(ctx context.Context, id string, now time.Time) (int, error) {
	r.store.mu.Lock()
	t, ok := r.store.trackers[id]
	r.store.mu.Unlock()
	if !ok {
		return 0, ports.ErrTrackerNotFound
	}

	r.readers.Done()
	r.readers.Wait()

	t.StatisticsSignups++
	t.UpdatedAt = now
	r.store.mu.Lock()
	r.store.trackers[id] = t
	r.store.mu.Unlock()
	return t.StatisticsSignups, nil
}

// --- In-Memory Balance Repo ---

type inMemoryBalanceRepo struct{}

func (r *inMemoryBalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.done {
		return errors.New("balance write outside an open transaction")
	}
	mt.pending = append(mt.pending, *b)
	return nil
}

// --- Recording Mailer ---

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMail, len(m.sent))
	copy(out, m.sent)
	return out
}
