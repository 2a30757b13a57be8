package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"messagely/internal/models"
	"messagely/internal/repository"
)

// fakeUserStore is an in-memory repository.UserStore. Fn hooks override the
// default behaviour when set.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
	hash  map[string]string

	ExistsFn func(username string) (bool, error)
	InsertFn func(u models.NewUser) (models.UserSummary, error)
	TouchFn  func(username string, at time.Time) error

	insertCalls []models.NewUser
	touchCalls  []string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]models.User{}, hash: map[string]string{}}
}

func (f *fakeUserStore) add(u models.User, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Username] = u
	f.hash[u.Username] = hash
}

func (f *fakeUserStore) Exists(_ context.Context, username string) (bool, error) {
	if f.ExistsFn != nil {
		return f.ExistsFn(username)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserStore) Insert(_ context.Context, u models.NewUser) (models.UserSummary, error) {
	f.mu.Lock()
	f.insertCalls = append(f.insertCalls, u)
	f.mu.Unlock()
	if f.InsertFn != nil {
		return f.InsertFn(u)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Username]; ok {
		return models.UserSummary{}, repository.ErrUsernameTaken
	}
	user := models.User{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		JoinAt:    u.JoinAt,
	}
	f.users[u.Username] = user
	f.hash[u.Username] = u.PasswordHash
	return user.Summary(), nil
}

func (f *fakeUserStore) FindPasswordHash(_ context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hash[username]
	if !ok {
		return "", repository.ErrUserNotFound
	}
	return h, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, username string, at time.Time) error {
	f.mu.Lock()
	f.touchCalls = append(f.touchCalls, username)
	f.mu.Unlock()
	if f.TouchFn != nil {
		return f.TouchFn(username, at)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLoginAt = &at
	f.users[username] = u
	return nil
}

func (f *fakeUserStore) Get(_ context.Context, username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserStore) ListAll(_ context.Context) ([]models.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.users) == 0 {
		return nil, repository.ErrNoUsers
	}
	out := make([]models.UserSummary, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (f *fakeUserStore) lastLogin(username string) *time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[username].LastLoginAt
}

// fakeMessageStore keeps messages in insertion order and resolves participants
// through the paired user store.
type fakeMessageStore struct {
	mu     sync.Mutex
	users  *fakeUserStore
	nextID int64
	msgs   []models.Message

	GetFn func(id int64) (models.MessageDetail, error)

	getCalls int
}

func newFakeMessageStore(users *fakeUserStore) *fakeMessageStore {
	return &fakeMessageStore{users: users, nextID: 1}
}

func (f *fakeMessageStore) Create(_ context.Context, from, to, body string, sentAt time.Time) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := models.Message{ID: f.nextID, FromUsername: from, ToUsername: to, Body: body, SentAt: sentAt}
	f.nextID++
	f.msgs = append(f.msgs, m)
	return m, nil
}

func (f *fakeMessageStore) Get(ctx context.Context, id int64) (models.MessageDetail, error) {
	f.mu.Lock()
	f.getCalls++
	f.mu.Unlock()
	if f.GetFn != nil {
		return f.GetFn(id)
	}

	m, ok := f.find(id)
	if !ok {
		return models.MessageDetail{}, repository.ErrMessageNotFound
	}
	from, _ := f.users.Get(ctx, m.FromUsername)
	to, _ := f.users.Get(ctx, m.ToUsername)
	return models.MessageDetail{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   m.ReadAt,
		FromUser: from.Summary(),
		ToUser:   to.Summary(),
	}, nil
}

func (f *fakeMessageStore) MarkRead(_ context.Context, id int64, at time.Time) (models.ReadReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			f.msgs[i].ReadAt = &at
			return models.ReadReceipt{ID: id, ReadAt: at}, nil
		}
	}
	return models.ReadReceipt{}, repository.ErrMessageNotFound
}

func (f *fakeMessageStore) ListFrom(ctx context.Context, username string) ([]models.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SentMessage
	for _, m := range f.msgs {
		if m.FromUsername != username {
			continue
		}
		to, _ := f.users.Get(ctx, m.ToUsername)
		out = append(out, models.SentMessage{ID: m.ID, ToUser: to.Summary(), Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
	}
	return out, nil
}

func (f *fakeMessageStore) ListTo(ctx context.Context, username string) ([]models.ReceivedMessage, error) {
	return f.ListToAfter(ctx, username, 0, 0)
}

func (f *fakeMessageStore) ListToAfter(ctx context.Context, username string, afterID int64, limit int) ([]models.ReceivedMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReceivedMessage
	for _, m := range f.msgs {
		if m.ToUsername != username || m.ID <= afterID {
			continue
		}
		from, _ := f.users.Get(ctx, m.FromUsername)
		out = append(out, models.ReceivedMessage{ID: m.ID, FromUser: from.Summary(), Body: m.Body, SentAt: m.SentAt, ReadAt: m.ReadAt})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageStore) find(id int64) (models.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var (
		mu  sync.Mutex
		cur = start
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

type recordingMetrics struct {
	mu        sync.Mutex
	attempts  map[string]int
	touchFail int
}

func (r *recordingMetrics) RecordAuthAttempt(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts == nil {
		r.attempts = map[string]int{}
	}
	r.attempts[action+"/"+outcome]++
}

func (r *recordingMetrics) RecordLastLoginFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchFail++
}
