package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/diagnosis/luxsuv-accounts/internal/domain"
)

// memStore mirrors the Postgres constraints the repositories rely on.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]domain.Account
	codes    []domain.VerificationCode
}

func newMemStore() *memStore {
	return &memStore{accounts: map[int64]domain.Account{}}
}

var statusOrder = []domain.AuthStatus{domain.StatusNew, domain.StatusCodeVerified, domain.StatusDone, domain.StatusPhotoStep}

func rank(s domain.AuthStatus) int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

type memAccounts struct{ *memStore }

func (m memAccounts) Create(_ context.Context, a domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.accounts {
		switch {
		case other.Username == a.Username:
			return nil, domain.ErrUsernameTaken
		case a.Email != "" && other.Email == a.Email:
			return nil, &domain.ConflictError{Field: "email"}
		case a.PhoneNumber != "" && other.PhoneNumber == a.PhoneNumber:
			return nil, &domain.ConflictError{Field: "phone_number"}
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.accounts[a.ID] = a
	return &a, nil
}

func (m memAccounts) find(match func(domain.Account) bool) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m memAccounts) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.ID == id })
}

func (m memAccounts) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.Username == username })
}

func (m memAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.Email != "" && a.Email == email })
}

func (m memAccounts) FindByPhone(_ context.Context, phone string) (*domain.Account, error) {
	return m.find(func(a domain.Account) bool { return a.PhoneNumber != "" && a.PhoneNumber == phone })
}

func (m memAccounts) Update(_ context.Context, a domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.accounts[a.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for id, other := range m.accounts {
		if id != a.ID && other.Username == a.Username {
			return nil, &domain.ConflictError{Field: "username"}
		}
	}
	cur.Username, cur.Password = a.Username, a.Password
	cur.FirstName, cur.LastName, cur.Photo = a.FirstName, a.LastName, a.Photo
	if rank(a.AuthStatus) > rank(cur.AuthStatus) {
		cur.AuthStatus = a.AuthStatus
	}
	cur.UpdatedAt = time.Now()
	m.accounts[a.ID] = cur
	return &cur, nil
}

func (m memAccounts) setStatus(id int64, st domain.AuthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[id]
	a.AuthStatus = st
	m.accounts[id] = a
}

type memCodes struct{ *memStore }

func (m memCodes) CreateIfNoneActive(_ context.Context, code *domain.VerificationCode, now time.Time) (*domain.VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[code.AccountID]; !ok {
		return nil, domain.ErrNotFound
	}
	for _, c := range m.codes {
		if c.AccountID == code.AccountID && c.Usable(now) {
			return nil, domain.NewValidationError("code", domain.MsgCodeStillUsable)
		}
	}
	out := *code
	out.ID = int64(len(m.codes) + 1)
	m.codes = append(m.codes, out)
	return &out, nil
}

func (m memCodes) Confirm(_ context.Context, accountID int64, code string, now time.Time) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := 0
	for i := range m.codes {
		c := &m.codes[i]
		if c.AccountID == accountID && c.Code == code && c.Usable(now) {
			c.IsConfirmed = true
			matched++
		}
	}
	if matched == 0 {
		return nil, domain.NewValidationError("code", domain.MsgCodeInvalid)
	}
	a := m.accounts[accountID]
	a.AuthStatus = a.AuthStatus.AfterVerification()
	m.accounts[accountID] = a
	return &a, nil
}

func (m memCodes) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []domain.VerificationCode
	var n int64
	for _, c := range m.codes {
		if !c.IsConfirmed && c.ExpiresAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.codes = kept
	return n, nil
}

type sentCode struct{ dest, code string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeSender) Send(_ context.Context, destination, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{destination, code})
	return nil
}

func (f *fakeSender) last() sentCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakePhotos struct {
	mu      sync.Mutex
	n       int
	objects map[string]int64
	putErr  error
}

func newFakePhotos() *fakePhotos { return &fakePhotos{objects: map[string]int64{}} }

func (f *fakePhotos) Put(_ context.Context, accountID int64, ext string, r io.Reader, size int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.n++
	key := fmt.Sprintf("photos/account-%d/%d.%s", accountID, f.n, ext)
	f.objects[key] = size
	return key, nil
}

func (f *fakePhotos) Delete(_ context.Context, _ int64, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakePhotos) URL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

// seqSource returns the queued values in order, then zeros.
type seqSource struct {
	mu   sync.Mutex
	vals []int
}

func (s *seqSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0] % n
	s.vals = s.vals[1:]
	return v
}
