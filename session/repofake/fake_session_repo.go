package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-orders-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps the saved session in memory. It counts calls so tests
// can assert on persistence traffic.
type FakeSessionRepo struct {
	saved   *session.Session
	lock    sync.RWMutex
	Saves   int
	Removes int
	Err     error // Returned from every call when set
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (sr *FakeSessionRepo) Load(_ context.Context) (*session.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	if sr.Err != nil {
		return nil, sr.Err
	}
	if sr.saved == nil {
		return nil, session.ErrNotFound
	}
	copied := *sr.saved
	return &copied, nil
}

func (sr *FakeSessionRepo) Save(_ context.Context, s *session.Session) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.Saves++
	if sr.Err != nil {
		return sr.Err
	}
	copied := *s
	sr.saved = &copied
	return nil
}

func (sr *FakeSessionRepo) Remove(_ context.Context) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.Removes++
	if sr.Err != nil {
		return sr.Err
	}
	sr.saved = nil
	return nil
}
