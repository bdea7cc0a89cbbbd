package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type fakeRecords struct {
	mu      sync.Mutex
	m       map[string]models.InterviewRecord
	gets    int
	replErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{m: map[string]models.InterviewRecord{}}
}

func (f *fakeRecords) Create(_ context.Context, r *models.InterviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[r.SessionID] = clone(r)
	return nil
}

func (f *fakeRecords) GetBySessionID(_ context.Context, id string) (*models.InterviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	r, ok := f.m[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	c := clone(&r)
	return &c, nil
}

func (f *fakeRecords) Replace(_ context.Context, r *models.InterviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replErr != nil {
		return f.replErr
	}
	if _, ok := f.m[r.SessionID]; !ok {
		return utils.ErrNotFound
	}
	f.m[r.SessionID] = clone(r)
	return nil
}

func (f *fakeRecords) get(id string) models.InterviewRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(ptr(f.m[id]))
}

func ptr[T any](v T) *T { return &v }

func clone(r *models.InterviewRecord) models.InterviewRecord {
	c := *r
	c.Questions = append([]models.Question(nil), r.Questions...)
	c.Answers = append([]models.Answer(nil), r.Answers...)
	return c
}

type fakeConvRepo struct {
	mu   sync.Mutex
	rows []models.ConversationLog
}

func (f *fakeConvRepo) Insert(_ context.Context, l *models.ConversationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *l)
	return nil
}

func (f *fakeConvRepo) ListBySession(_ context.Context, sessionID string, limit int) ([]models.ConversationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConversationLog
	for _, r := range f.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeProfileRepo struct {
	profiles map[string]*models.Profile
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return p, nil
}

type fakeCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	sets int
	dels int
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string][]byte{}} }

func (c *fakeCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.m[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.dels++
	return nil
}

// fakeLLM answers every prompt with the next scripted reply; an empty script
// repeats the last one.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
}

func (f *fakeLLM) StreamAnswer(_ context.Context, prompt string) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	err := f.err
	f.mu.Unlock()

	out := make(chan string, 2)
	errs := make(chan error, 1)
	if err != nil {
		errs <- err
	} else {
		out <- reply
	}
	close(out)
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
