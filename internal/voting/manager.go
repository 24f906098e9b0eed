package voting

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gamenight/internal/common"
	"gamenight/internal/gamepool"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Where the candidates come from
type ItemStore interface {
	RandomSample(n int) []gamepool.Game
}

// Whatever shows sessions to the users. Failures are logged
// and never undo a change in the voting state
type Publisher interface {
	// Returns a reference to the posted message so it can be edited later
	PublishSession(view View) (string, error)
	RefreshSession(view View) error
	PublishReminder(view View) error
	PublishResults(view View, results []Result) error
	PublishCancellation(view View, reason string) error
}

// Receives the winners of every closed session
type PlanConsumer interface {
	OnVotingResolved(periodLabel string, winners []string)
}

type Timers interface {
	Schedule(key string, at time.Time, task func())
	Cancel(key string) bool
}

// Owns every voting session of the deployment. At most one session is open at a time.
// All state changes happen under mu and are written to disk afterwards,
// before any message is sent
type Manager struct {
	mu           sync.Mutex
	saveMu       sync.Mutex
	database     DatabaseVoting
	items        ItemStore
	publisher    Publisher
	consumer     PlanConsumer
	timers       Timers
	clock        common.Clock
	winnersCount int
	sessions     []*Session
	reminders    map[string]*ReminderSchedule
}

func NewManager(dbFilename string, items ItemStore, publisher Publisher, consumer PlanConsumer, timers Timers, clock common.Clock, winnersCount int) (*Manager, error) {

	manager := &Manager{
		database:     CreateDatabaseVoting(dbFilename),
		items:        items,
		publisher:    publisher,
		consumer:     consumer,
		timers:       timers,
		clock:        clock,
		winnersCount: winnersCount,
	}
	sessions, reminders, err := manager.database.GetSessions()
	if err != nil {
		return nil, err
	}
	manager.sessions = sessions
	manager.reminders = reminders
	log.Info().Msg(fmt.Sprintf("Loaded %d voting sessions and %d reminders", len(sessions), len(reminders)))

	return manager, nil
}

func closeKey(sessionID string) string {
	return "close:" + sessionID
}

func remindKey(sessionID string) string {
	return "remind:" + sessionID
}

// Open a new session with a random selection of games
func (m *Manager) StartSession(req StartRequest) (View, error) {

	if err := req.Validate(); err != nil {
		return View{}, err
	}

	m.mu.Lock()
	if active := m.activeLocked(); active != nil {
		m.mu.Unlock()
		log.Info().Msg(fmt.Sprintf("Rejecting new session, session %s is still open", active.ID))
		return View{}, ErrSessionAlreadyOpen
	}
	games := m.items.RandomSample(req.CandidateCount)
	if len(games) == 0 {
		m.mu.Unlock()
		return View{}, ErrNoCandidatesAvailable
	}
	candidateIDs := make([]string, len(games))
	for i := range games {
		candidateIDs[i] = games[i].ID
	}

	now := m.clock.Now()
	end := now.Add(time.Duration(req.DurationHours) * time.Hour)
	// The winners are played the week the vote ends in
	session := newSession(uuid.NewString(), common.WeekLabel(end), candidateIDs, req.ChannelRef, now, end, req.CreatorID)
	m.sessions = append(m.sessions, session)
	m.armCloseLocked(session)
	if end.Sub(now) > ReminderLead {
		reminder := &ReminderSchedule{SessionID: session.ID, NextReminderAt: end.Add(-ReminderLead)}
		m.reminders[session.ID] = reminder
		m.armReminderLocked(reminder)
	}
	view := session.View()
	m.mu.Unlock()

	log.Info().Msg(fmt.Sprintf("Session %s started by %s with %d games, closing at %s", session.ID, req.CreatorID, len(candidateIDs), end.Format(time.RFC3339)))
	m.persist()

	postRef, err := m.publisher.PublishSession(view)
	if err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not post session %s", session.ID))
		return view, nil
	}
	m.mu.Lock()
	session.PostRef = postRef
	view = session.View()
	m.mu.Unlock()
	m.persist()

	return view, nil
}

// The open session, if any
func (m *Manager) ActiveSession() (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active := m.activeLocked(); active != nil {
		return active.View(), true
	}
	return View{}, false
}

func (m *Manager) Session(sessionID string) (View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session := m.findLocked(sessionID); session != nil {
		return session.View(), true
	}
	return View{}, false
}

// Every session ever created, oldest first
func (m *Manager) History() []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	views := make([]View, 0, len(m.sessions))
	for _, session := range m.sessions {
		views = append(views, session.View())
	}
	return views
}

func (m *Manager) CastVote(sessionID string, itemID string, userID string) error {

	m.mu.Lock()
	session := m.findLocked(sessionID)
	if session == nil {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	changed, err := session.CastVote(itemID, userID)
	view := session.View()
	m.mu.Unlock()

	if err != nil {
		log.Debug().Msg(fmt.Sprintf("Vote rejected in session %s: %s", sessionID, err))
		return err
	}
	if !changed {
		return nil
	}

	m.persist()
	if err := m.publisher.RefreshSession(view); err != nil {
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not refresh the message of session %s", sessionID))
	}
	return nil
}

func (m *Manager) CancelSession(sessionID string, reason string) (View, error) {

	m.mu.Lock()
	session := m.findLocked(sessionID)
	if session == nil {
		m.mu.Unlock()
		return View{}, ErrSessionNotFound
	}
	if session.Status != StatusOpen {
		m.mu.Unlock()
		return View{}, ErrSessionNotOpen
	}
	session.Status = StatusCancelled
	m.timers.Cancel(closeKey(sessionID))
	m.timers.Cancel(remindKey(sessionID))
	view := session.View()
	m.mu.Unlock()

	log.Info().Msg(fmt.Sprintf("Session %s cancelled", sessionID))
	m.persist()

	if err := m.publisher.PublishCancellation(view, reason); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not announce cancellation of session %s", sessionID))
	}
	return view, nil
}

// Close an open session, publish its results and hand the winners over.
// Closing a session that is not open anymore does nothing
func (m *Manager) CloseSession(sessionID string) ([]Result, error) {

	m.mu.Lock()
	session := m.findLocked(sessionID)
	if session == nil {
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	if session.Status != StatusOpen {
		m.mu.Unlock()
		return nil, ErrSessionNotOpen
	}
	session.Status = StatusClosed
	m.timers.Cancel(closeKey(sessionID))
	m.timers.Cancel(remindKey(sessionID))
	results := session.Tally()
	winners := session.SelectWinners(m.winnersCount)
	view := session.View()
	m.mu.Unlock()

	log.Info().Msg(fmt.Sprintf("Session %s closed with %d voters", sessionID, view.TotalVoters))
	m.persist()

	m.publishResults(session, view, results)
	if len(winners) > 0 {
		m.consumer.OnVotingResolved(view.PeriodLabel, winners)
	}
	return results, nil
}

func (m *Manager) publishResults(session *Session, view View, results []Result) {
	if err := m.publisher.PublishResults(view, results); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not publish results of session %s", session.ID))
		return
	}
	m.mu.Lock()
	session.ResultsPublished = true
	m.mu.Unlock()
	m.persist()
}

// Send the reminder of a session if it is due. At most one reminder
// is ever sent per session. Returns whether it was sent
func (m *Manager) MaybeSendReminder(sessionID string) bool {

	m.mu.Lock()
	reminder, ok := m.reminders[sessionID]
	if !ok || reminder.RemindersSent > 0 {
		m.mu.Unlock()
		return false
	}
	session := m.findLocked(sessionID)
	now := m.clock.Now()
	if session == nil || session.Status != StatusOpen || now.Before(reminder.NextReminderAt) {
		m.mu.Unlock()
		return false
	}
	reminder.RemindersSent++
	reminder.LastReminderSentAt = &now
	view := session.View()
	m.mu.Unlock()

	log.Info().Msg(fmt.Sprintf("Sending reminder for session %s", sessionID))
	m.persist()

	if err := m.publisher.PublishReminder(view); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not send reminder for session %s", sessionID))
	}
	return true
}

// Go through every reminder. This is the safety net in case
// a one-shot timer got lost
func (m *Manager) CheckReminders() int {
	m.mu.Lock()
	sessionIDs := m.pendingRemindersLocked()
	m.mu.Unlock()

	sent := 0
	for _, sessionID := range sessionIDs {
		if m.MaybeSendReminder(sessionID) {
			sent++
		}
	}
	return sent
}

// Bring timers back after a restart. Sessions that should have closed
// while the process was down are closed now
func (m *Manager) Recover() {

	m.mu.Lock()
	now := m.clock.Now()
	var overdue []string
	var unpublished []*Session
	for _, session := range m.sessions {
		switch {
		case session.Status == StatusOpen && !session.EndTime.After(now):
			overdue = append(overdue, session.ID)
		case session.Status == StatusOpen:
			m.armCloseLocked(session)
			if reminder, ok := m.reminders[session.ID]; ok && reminder.RemindersSent == 0 {
				m.armReminderLocked(reminder)
			}
		case session.Status == StatusClosed && !session.ResultsPublished:
			unpublished = append(unpublished, session)
		}
	}
	m.mu.Unlock()

	for _, sessionID := range overdue {
		log.Info().Msg(fmt.Sprintf("Session %s ended while offline, closing it now", sessionID))
		if _, err := m.CloseSession(sessionID); err != nil {
			log.Debug().Msg(fmt.Sprintf("Session %s was already closed: %s", sessionID, err))
		}
	}
	for _, session := range unpublished {
		log.Info().Msg(fmt.Sprintf("Publishing pending results of session %s", session.ID))
		m.mu.Lock()
		view := session.View()
		m.mu.Unlock()
		m.publishResults(session, view, view.Results)
	}
}

func (m *Manager) armCloseLocked(session *Session) {
	sessionID := session.ID
	m.timers.Schedule(closeKey(sessionID), session.EndTime, func() {
		if _, err := m.CloseSession(sessionID); err != nil {
			if errors.Is(err, ErrSessionNotOpen) {
				log.Debug().Msg(fmt.Sprintf("Closure timer of session %s fired after the session ended", sessionID))
				return
			}
			log.Warn().Err(err).Msg(fmt.Sprintf("Closure timer of session %s failed", sessionID))
		}
	})
}

func (m *Manager) armReminderLocked(reminder *ReminderSchedule) {
	sessionID := reminder.SessionID
	m.timers.Schedule(remindKey(sessionID), reminder.NextReminderAt, func() {
		m.MaybeSendReminder(sessionID)
	})
}

// Reminders not sent yet whose session can still receive one
func (m *Manager) pendingRemindersLocked() []string {
	sessionIDs := []string{}
	for sessionID, reminder := range m.reminders {
		if reminder.RemindersSent > 0 {
			continue
		}
		if session := m.findLocked(sessionID); session != nil && session.Status == StatusOpen {
			sessionIDs = append(sessionIDs, sessionID)
		}
	}
	sort.Strings(sessionIDs)
	return sessionIDs
}

func (m *Manager) activeLocked() *Session {
	for _, session := range m.sessions {
		if session.Status == StatusOpen {
			return session
		}
	}
	return nil
}

func (m *Manager) findLocked(sessionID string) *Session {
	for _, session := range m.sessions {
		if session.ID == sessionID {
			return session
		}
	}
	return nil
}

// Write the current state to disk. Snapshots are taken and written
// one at a time so the file always ends up with the latest state.
// Must not be called with mu held
func (m *Manager) persist() {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	stored := encodeStorage(m.sessions, m.reminders)
	m.mu.Unlock()

	if err := m.database.SetSessions(stored); err != nil {
		log.Error().Err(err).Msg("Could not save voting sessions, keeping the in-memory state")
	}
}
