package planner

import (
	"fmt"
	"sync"
	"time"

	"gamenight/internal/activities"
	"gamenight/internal/common"
	"gamenight/internal/gamepool"

	"github.com/rs/zerolog/log"
)

type Games interface {
	FindById(id string) (gamepool.Game, bool)
	RandomSample(n int) []gamepool.Game
}

type Activities interface {
	ForWeek() []activities.Activity
}

type Poster interface {
	PostPlan(plan Plan) error
}

type Plan struct {
	Period      string
	Games       []gamepool.Game
	Activities  []activities.Activity
	FromVote    bool
	GeneratedAt time.Time
}

type plannerState struct {
	NextPostAt time.Time           `json:"next_post_at"`
	Selections map[string][]string `json:"selections"`
}

// Builds the plan of the week and posts it every week at a fixed time.
// Games chosen by a vote take precedence over a random pick
type Planner struct {
	mu           sync.Mutex
	database     common.Database
	games        Games
	activities   Activities
	poster       Poster
	clock        common.Clock
	gamesPerPlan int
	weekday      time.Weekday
	hour         int
	state        plannerState
}

func NewPlanner(dbFilename string, games Games, activities Activities, poster Poster, clock common.Clock, gamesPerPlan int, weekday time.Weekday, hour int) (*Planner, error) {
	planner := &Planner{
		database:     common.NewDatabase(dbFilename),
		games:        games,
		activities:   activities,
		poster:       poster,
		clock:        clock,
		gamesPerPlan: gamesPerPlan,
		weekday:      weekday,
		hour:         hour,
	}
	if err := planner.database.Load(&planner.state); err != nil {
		return nil, err
	}
	if planner.state.Selections == nil {
		planner.state.Selections = map[string][]string{}
	}
	return planner, nil
}

// Called once for every closed voting session
func (planner *Planner) OnVotingResolved(periodLabel string, winners []string) {
	planner.mu.Lock()
	planner.state.Selections[periodLabel] = append([]string(nil), winners...)
	planner.mu.Unlock()
	planner.save()

	log.Info().Msg(fmt.Sprintf("Vote for %s resolved with %d games", periodLabel, len(winners)))
	plan := planner.build(periodLabel, winners)
	if err := planner.poster.PostPlan(plan); err != nil {
		log.Error().Err(err).Msg(fmt.Sprintf("Could not post the plan for %s", periodLabel))
	}
}

// The plan for the current week
func (planner *Planner) Generate() Plan {
	period := common.WeekLabel(planner.clock.Now())
	planner.mu.Lock()
	selection, ok := planner.state.Selections[period]
	planner.mu.Unlock()
	if ok {
		return planner.build(period, selection)
	}
	plan := planner.build(period, nil)
	plan.Games = planner.games.RandomSample(planner.gamesPerPlan)
	return plan
}

// Post the weekly plan if its time has come. Returns whether it was posted
func (planner *Planner) Tick() bool {
	now := planner.clock.Now()
	planner.mu.Lock()
	if planner.state.NextPostAt.IsZero() {
		planner.state.NextPostAt = common.NextWeekly(now, planner.weekday, planner.hour)
		log.Info().Msg(fmt.Sprintf("Next weekly plan scheduled for %s", planner.state.NextPostAt.Format(time.RFC3339)))
		planner.mu.Unlock()
		planner.save()
		return false
	}
	if now.Before(planner.state.NextPostAt) {
		planner.mu.Unlock()
		return false
	}
	planner.state.NextPostAt = common.NextWeekly(now, planner.weekday, planner.hour)
	planner.mu.Unlock()
	planner.save()

	plan := planner.Generate()
	log.Info().Msg(fmt.Sprintf("Posting weekly plan for %s", plan.Period))
	if err := planner.poster.PostPlan(plan); err != nil {
		log.Error().Err(err).Msg("Could not post the weekly plan")
	}
	return true
}

func (planner *Planner) NextPostAt() time.Time {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	return planner.state.NextPostAt
}

func (planner *Planner) build(period string, gameIds []string) Plan {
	plan := Plan{
		Period:      period,
		Games:       []gamepool.Game{},
		Activities:  planner.activities.ForWeek(),
		FromVote:    gameIds != nil,
		GeneratedAt: planner.clock.Now(),
	}
	for _, id := range gameIds {
		game, ok := planner.games.FindById(id)
		if !ok {
			log.Warn().Msg(fmt.Sprintf("Game %s chosen by vote is not in the pool anymore", id))
			continue
		}
		plan.Games = append(plan.Games, game)
	}
	return plan
}

func (planner *Planner) save() {
	planner.mu.Lock()
	defer planner.mu.Unlock()
	if err := planner.database.Save(planner.state); err != nil {
		log.Error().Err(err).Msg("Could not save the planner state")
	}
}
