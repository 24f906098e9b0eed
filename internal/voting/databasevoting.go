package voting

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"gamenight/internal/common"

	"github.com/rs/zerolog/log"
)

const storageVersion = 1

type sessionRecord struct {
	ID               string              `json:"id"`
	PeriodLabel      string              `json:"period_label"`
	CandidateIDs     []string            `json:"candidate_ids"`
	VotesByItem      map[string][]string `json:"votes_by_item"`
	PostRef          string              `json:"post_ref,omitempty"`
	ChannelRef       string              `json:"channel_ref"`
	StartTime        time.Time           `json:"start_time"`
	EndTime          time.Time           `json:"end_time"`
	Status           Status              `json:"status"`
	ResultsPublished bool                `json:"results_published"`
	CreatedBy        string              `json:"created_by"`
}

type reminderRecord struct {
	SessionID          string     `json:"session_id"`
	LastReminderSentAt *time.Time `json:"last_reminder_sent_at"`
	NextReminderAt     time.Time  `json:"next_reminder_at"`
	RemindersSent      int        `json:"reminders_sent"`
}

type storageVoting struct {
	Version   int              `json:"version"`
	Sessions  []sessionRecord  `json:"sessions"`
	Reminders []reminderRecord `json:"reminders"`
}

type DatabaseVoting struct {
	common.Database
}

func CreateDatabaseVoting(dbFilename string) DatabaseVoting {
	return DatabaseVoting{common.NewDatabase(dbFilename)}
}

// Read every session and reminder from disk
func (db *DatabaseVoting) GetSessions() ([]*Session, map[string]*ReminderSchedule, error) {
	var stored storageVoting
	if err := db.Load(&stored); err != nil {
		return nil, nil, err
	}
	if stored.Version > storageVersion {
		return nil, nil, fmt.Errorf("voting database version %d is newer than supported version %d", stored.Version, storageVersion)
	}
	sessions := make([]*Session, 0, len(stored.Sessions))
	for _, record := range stored.Sessions {
		session, err := record.toSession()
		if err != nil {
			return nil, nil, err
		}
		sessions = append(sessions, session)
	}
	reminders := make(map[string]*ReminderSchedule, len(stored.Reminders))
	for _, record := range stored.Reminders {
		reminder := record.toReminder()
		reminders[reminder.SessionID] = &reminder
	}
	return sessions, reminders, nil
}

func (db *DatabaseVoting) SetSessions(stored storageVoting) error {
	return db.Save(stored)
}

// Deep copy of the state, ready to be written to disk
func encodeStorage(sessions []*Session, reminders map[string]*ReminderSchedule) storageVoting {
	stored := storageVoting{
		Version:   storageVersion,
		Sessions:  make([]sessionRecord, 0, len(sessions)),
		Reminders: make([]reminderRecord, 0, len(reminders)),
	}
	for _, session := range sessions {
		stored.Sessions = append(stored.Sessions, newSessionRecord(session))
	}
	for _, reminder := range reminders {
		stored.Reminders = append(stored.Reminders, newReminderRecord(reminder))
	}
	sort.Slice(stored.Reminders, func(i, j int) bool {
		return stored.Reminders[i].SessionID < stored.Reminders[j].SessionID
	})
	return stored
}

func newSessionRecord(session *Session) sessionRecord {
	votesByItem := make(map[string][]string, len(session.votes))
	for itemID, state := range session.votes {
		voters := make([]string, 0, len(state.voters))
		for userID := range state.voters {
			voters = append(voters, userID)
		}
		sort.Strings(voters)
		votesByItem[itemID] = voters
	}
	return sessionRecord{
		ID:               session.ID,
		PeriodLabel:      session.PeriodLabel,
		CandidateIDs:     slices.Clone(session.CandidateIDs),
		VotesByItem:      votesByItem,
		PostRef:          session.PostRef,
		ChannelRef:       session.ChannelRef,
		StartTime:        session.StartTime,
		EndTime:          session.EndTime,
		Status:           session.Status,
		ResultsPublished: session.ResultsPublished,
		CreatedBy:        session.CreatedBy,
	}
}

// Rebuild a session, repairing anything that breaks the vote invariants:
// votes for games that are not candidates are dropped, and a user found
// under several games keeps only the first one in candidate order
func (record sessionRecord) toSession() (*Session, error) {
	switch record.Status {
	case StatusOpen, StatusClosed, StatusCancelled:
	default:
		return nil, fmt.Errorf("session %s has unknown status %q", record.ID, record.Status)
	}
	session := newSession(record.ID, record.PeriodLabel, record.CandidateIDs, record.ChannelRef, record.StartTime, record.EndTime, record.CreatedBy)
	session.PostRef = record.PostRef
	session.Status = record.Status
	session.ResultsPublished = record.ResultsPublished

	for itemID := range record.VotesByItem {
		if _, ok := session.votes[itemID]; !ok {
			log.Warn().Msg(fmt.Sprintf("Dropping votes for game %s which is not a candidate of session %s", itemID, record.ID))
		}
	}
	seen := map[string]bool{}
	for _, itemID := range session.CandidateIDs {
		for _, userID := range record.VotesByItem[itemID] {
			if seen[userID] {
				log.Warn().Msg(fmt.Sprintf("Dropping extra vote of a user in session %s", record.ID))
				continue
			}
			seen[userID] = true
			session.votes[itemID].add(userID)
		}
	}
	return session, nil
}

func newReminderRecord(reminder *ReminderSchedule) reminderRecord {
	record := reminderRecord{
		SessionID:      reminder.SessionID,
		NextReminderAt: reminder.NextReminderAt,
		RemindersSent:  reminder.RemindersSent,
	}
	if reminder.LastReminderSentAt != nil {
		last := *reminder.LastReminderSentAt
		record.LastReminderSentAt = &last
	}
	return record
}

func (record reminderRecord) toReminder() ReminderSchedule {
	reminder := ReminderSchedule{
		SessionID:      record.SessionID,
		NextReminderAt: record.NextReminderAt,
		RemindersSent:  record.RemindersSent,
	}
	if record.LastReminderSentAt != nil {
		last := *record.LastReminderSentAt
		reminder.LastReminderSentAt = &last
	}
	return reminder
}
