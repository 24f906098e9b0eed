package voting

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Reminders go out this long before a session closes
const ReminderLead = 6 * time.Hour

// Limits for a start request
const (
	MinCandidates    = 1
	MaxCandidates    = 10
	MinDurationHours = 1
	MaxDurationHours = 168
)

var (
	ErrSessionAlreadyOpen    = errors.New("a voting session is already open")
	ErrNoCandidatesAvailable = errors.New("no games available to vote on")
	ErrSessionNotFound       = errors.New("voting session not found")
	ErrSessionNotOpen        = errors.New("voting session is not open")
	ErrUnknownCandidate      = errors.New("game is not a candidate of this session")
	ErrInvalidRequest        = errors.New("invalid start request")
)

// Parameters of the start command, checked before they reach the manager
type StartRequest struct {
	ChannelRef     string
	CandidateCount int
	DurationHours  int
	CreatorID      string
}

func (req StartRequest) Validate() error {
	if req.CandidateCount < MinCandidates || req.CandidateCount > MaxCandidates {
		return fmt.Errorf("%w: number of games must be between %d and %d", ErrInvalidRequest, MinCandidates, MaxCandidates)
	}
	if req.DurationHours < MinDurationHours || req.DurationHours > MaxDurationHours {
		return fmt.Errorf("%w: duration must be between %d and %d hours", ErrInvalidRequest, MinDurationHours, MaxDurationHours)
	}
	if req.ChannelRef == "" {
		return fmt.Errorf("%w: missing channel", ErrInvalidRequest)
	}
	return nil
}

// Votes received by one candidate. The score is a cache of the
// number of voters and is only ever recomputed from the voter set
type ItemVoteState struct {
	ItemID string
	voters map[string]struct{}
	score  int
}

func newItemVoteState(itemID string) *ItemVoteState {
	return &ItemVoteState{ItemID: itemID, voters: map[string]struct{}{}}
}

func (state *ItemVoteState) Score() int {
	return state.score
}

func (state *ItemVoteState) VoterCount() int {
	return len(state.voters)
}

func (state *ItemVoteState) add(userID string) bool {
	if _, ok := state.voters[userID]; ok {
		return false
	}
	state.voters[userID] = struct{}{}
	state.score = len(state.voters)
	return true
}

func (state *ItemVoteState) remove(userID string) bool {
	if _, ok := state.voters[userID]; !ok {
		return false
	}
	delete(state.voters, userID)
	state.score = len(state.voters)
	return true
}

type ReminderSchedule struct {
	SessionID          string
	LastReminderSentAt *time.Time
	NextReminderAt     time.Time
	RemindersSent      int
}

// One line of a tally
type Result struct {
	ItemID     string
	Score      int
	Voters     int
	Percentage int
}

// Read-only picture of a session. It only carries aggregate counts,
// never who voted for what
type View struct {
	ID               string
	PeriodLabel      string
	ChannelRef       string
	PostRef          string
	CreatedBy        string
	CandidateIDs     []string
	Results          []Result
	TotalVoters      int
	StartTime        time.Time
	EndTime          time.Time
	Status           Status
	ResultsPublished bool
}

func (view View) Remaining(now time.Time) time.Duration {
	if remaining := view.EndTime.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}
