package voting

import (
	"errors"
	"sync"
	"time"

	"gamenight/internal/gamepool"
)

var t0 = time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)

type fakeStore struct {
	games []gamepool.Game
}

func newFakeStore(ids ...string) *fakeStore {
	store := &fakeStore{}
	for _, id := range ids {
		store.games = append(store.games, gamepool.Game{ID: id, Name: "Game " + id, Active: true})
	}
	return store
}

func (store *fakeStore) RandomSample(n int) []gamepool.Game {
	if n > len(store.games) {
		n = len(store.games)
	}
	return append([]gamepool.Game(nil), store.games[:n]...)
}

type fakePublisher struct {
	mu            sync.Mutex
	failResults   bool
	failSession   bool
	sessions      []View
	refreshes     int
	reminders     []View
	results       [][]Result
	cancellations []string
}

func (p *fakePublisher) PublishSession(view View) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failSession {
		return "", errors.New("channel deleted")
	}
	p.sessions = append(p.sessions, view)
	return "message-" + view.ID, nil
}

func (p *fakePublisher) RefreshSession(view View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return nil
}

func (p *fakePublisher) PublishReminder(view View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reminders = append(p.reminders, view)
	return nil
}

func (p *fakePublisher) PublishResults(view View, results []Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failResults {
		return errors.New("missing permissions")
	}
	p.results = append(p.results, results)
	return nil
}

func (p *fakePublisher) PublishCancellation(view View, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancellations = append(p.cancellations, reason)
	return nil
}

func (p *fakePublisher) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

type resolved struct {
	period  string
	winners []string
}

type fakeConsumer struct {
	mu       sync.Mutex
	resolved []resolved
}

func (c *fakeConsumer) OnVotingResolved(periodLabel string, winners []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = append(c.resolved, resolved{periodLabel, winners})
}

// Timers that only fire when the test says so
type fakeTimers struct {
	mu    sync.Mutex
	tasks map[string]func()
	at    map[string]time.Time
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{tasks: map[string]func(){}, at: map[string]time.Time{}}
}

func (ft *fakeTimers) Schedule(key string, at time.Time, task func()) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.tasks[key] = task
	ft.at[key] = at
}

func (ft *fakeTimers) Cancel(key string) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	_, ok := ft.tasks[key]
	delete(ft.tasks, key)
	delete(ft.at, key)
	return ok
}

func (ft *fakeTimers) deadline(key string) (time.Time, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	at, ok := ft.at[key]
	return at, ok
}

// Run a task even if it was cancelled in the meantime, like a timer
// that was already firing when the cancellation happened
func (ft *fakeTimers) fire(task func()) {
	task()
}

func (ft *fakeTimers) task(key string) func() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.tasks[key]
}
