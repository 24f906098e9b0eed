package voting

import (
	"math"
	"slices"
	"sort"
	"time"
)

// A voting round for one week
type Session struct {
	ID               string
	PeriodLabel      string
	CandidateIDs     []string
	PostRef          string
	ChannelRef       string
	StartTime        time.Time
	EndTime          time.Time
	Status           Status
	ResultsPublished bool
	CreatedBy        string
	votes            map[string]*ItemVoteState
}

func newSession(id string, periodLabel string, candidateIDs []string, channelRef string, start time.Time, end time.Time, createdBy string) *Session {
	session := &Session{
		ID:           id,
		PeriodLabel:  periodLabel,
		CandidateIDs: slices.Clone(candidateIDs),
		ChannelRef:   channelRef,
		StartTime:    start,
		EndTime:      end,
		Status:       StatusOpen,
		CreatedBy:    createdBy,
		votes:        make(map[string]*ItemVoteState, len(candidateIDs)),
	}
	for _, itemID := range candidateIDs {
		session.votes[itemID] = newItemVoteState(itemID)
	}
	return session
}

// Record the vote of a user. Any previous vote of the same user
// in this session is dropped first, so a user has at most one vote.
// Returns whether anything changed
func (session *Session) CastVote(itemID string, userID string) (bool, error) {
	if session.Status != StatusOpen {
		return false, ErrSessionNotOpen
	}
	target, ok := session.votes[itemID]
	if !ok {
		return false, ErrUnknownCandidate
	}
	if _, already := target.voters[userID]; already {
		return false, nil
	}
	for _, state := range session.votes {
		state.remove(userID)
	}
	target.add(userID)
	return true, nil
}

// Candidates ranked by score. Ties keep the order in which
// the candidates were proposed
func (session *Session) Tally() []Result {
	total := 0
	for _, itemID := range session.CandidateIDs {
		total += session.votes[itemID].Score()
	}
	results := make([]Result, 0, len(session.CandidateIDs))
	for _, itemID := range session.CandidateIDs {
		state := session.votes[itemID]
		percentage := 0
		if total > 0 {
			percentage = int(math.Round(100 * float64(state.Score()) / float64(total)))
		}
		results = append(results, Result{
			ItemID:     itemID,
			Score:      state.Score(),
			Voters:     state.VoterCount(),
			Percentage: percentage,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// The k best ranked candidates
func (session *Session) SelectWinners(k int) []string {
	results := session.Tally()
	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	winners := make([]string, 0, k)
	for _, result := range results[:k] {
		winners = append(winners, result.ItemID)
	}
	return winners
}

// Number of distinct users with a vote in this session
func (session *Session) TotalVoters() int {
	total := 0
	for _, state := range session.votes {
		total += state.VoterCount()
	}
	return total
}

func (session *Session) View() View {
	return View{
		ID:               session.ID,
		PeriodLabel:      session.PeriodLabel,
		ChannelRef:       session.ChannelRef,
		PostRef:          session.PostRef,
		CreatedBy:        session.CreatedBy,
		CandidateIDs:     slices.Clone(session.CandidateIDs),
		Results:          session.Tally(),
		TotalVoters:      session.TotalVoters(),
		StartTime:        session.StartTime,
		EndTime:          session.EndTime,
		Status:           session.Status,
		ResultsPublished: session.ResultsPublished,
	}
}
