// Package ledgertest provides an in-memory attendance ledger for tests.
package ledgertest

import (
	"context"
	"sync"
	"time"

	"checkin/internal/ledger"
)

// Fake is an in-memory ledger implementing the check/mark contract.
type Fake struct {
	// BeforeMark, when set, runs before a mark is applied. Returning an error aborts the
	// mark without writing.
	BeforeMark func(ctx context.Context) error
	CheckErr   error
	MarkErr    error

	mu         sync.Mutex
	users      map[string]ledger.User
	marks      map[string]map[string]time.Time
	checkCalls int
	markCalls  int
	now        func() time.Time
}

func NewFake(users ...ledger.User) *Fake {
	f := &Fake{
		users: make(map[string]ledger.User),
		marks: make(map[string]map[string]time.Time),
		now:   time.Now,
	}
	for _, u := range users {
		f.AddUser(u)
	}
	return f
}

func (f *Fake) AddUser(u ledger.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.QRCodeData] = u
}

// SetMarked records attendance directly, as another station would.
func (f *Fake) SetMarked(payload, category string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.marks[payload] == nil {
		f.marks[payload] = make(map[string]time.Time)
	}
	f.marks[payload][category] = at
}

// MarkedAt reports the recorded attendance for payload in category.
func (f *Fake) MarkedAt(payload, category string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.marks[payload][category]
	return at, ok
}

// Calls returns how many check and mark calls were made.
func (f *Fake) Calls() (check, mark int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls, f.markCalls
}

func (f *Fake) CheckStatus(ctx context.Context, payload, category string) (ledger.StatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	if f.CheckErr != nil {
		return ledger.StatusResult{}, f.CheckErr
	}
	if err := ctx.Err(); err != nil {
		return ledger.StatusResult{}, err
	}
	u, ok := f.users[payload]
	if !ok {
		return ledger.StatusResult{Found: false}, nil
	}
	res := ledger.StatusResult{Found: true, User: &u, Status: ledger.StatusNotMarked}
	if at, ok := f.marks[payload][category]; ok {
		res.Status = ledger.StatusMarked
		res.MarkedAt = &at
	}
	return res, nil
}

func (f *Fake) MarkAttendance(ctx context.Context, payload, category string) (ledger.MarkResult, error) {
	f.mu.Lock()
	f.markCalls++
	hook := f.BeforeMark
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return ledger.MarkResult{}, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MarkErr != nil {
		return ledger.MarkResult{}, f.MarkErr
	}
	if err := ctx.Err(); err != nil {
		return ledger.MarkResult{}, err
	}
	u, ok := f.users[payload]
	if !ok {
		return ledger.MarkResult{}, ledger.ErrNotFound
	}
	if at, ok := f.marks[payload][category]; ok {
		return ledger.MarkResult{AlreadyMarked: true, User: &u, MarkedAt: &at}, nil
	}
	at := f.now()
	if f.marks[payload] == nil {
		f.marks[payload] = make(map[string]time.Time)
	}
	f.marks[payload][category] = at
	return ledger.MarkResult{Success: true, User: &u, MarkedAt: &at}, nil
}
