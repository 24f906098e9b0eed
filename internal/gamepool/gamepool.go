package gamepool

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gamenight/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrEmptyName     = errors.New("game name cannot be empty")
	ErrDuplicateName = errors.New("a game with that name already exists")
	ErrPlayerRange   = errors.New("minimum players cannot exceed maximum players")
)

type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	MinPlayers  int       `json:"min_players,omitempty"`
	MaxPlayers  int       `json:"max_players,omitempty"`
	Active      bool      `json:"active"`
	AddedBy     string    `json:"added_by"`
	AddedAt     time.Time `json:"added_at"`
}

// Fields that can be changed on an existing game. Nil means unchanged
type GameEdit struct {
	Name        *string
	Description *string
	Platform    *string
	Genre       *string
	MinPlayers  *int
	MaxPlayers  *int
}

type Pool struct {
	mu       sync.Mutex
	database common.Database
	clock    common.Clock
	rng      *rand.Rand
	games    []Game
}

func NewPool(dbFilename string, clock common.Clock) (*Pool, error) {
	pool := &Pool{
		database: common.NewDatabase(dbFilename),
		clock:    clock,
		rng:      rand.New(rand.NewPCG(uint64(clock.Now().UnixNano()), uint64(time.Now().UnixNano()))),
		games:    []Game{},
	}
	var stored struct {
		Games []Game `json:"games"`
	}
	if err := pool.database.Load(&stored); err != nil {
		return nil, err
	}
	if stored.Games != nil {
		pool.games = stored.Games
	}
	log.Info().Msg(fmt.Sprintf("Game pool loaded with %d games", len(pool.games)))
	return pool, nil
}

// Use a deterministic random source
func (pool *Pool) Seed(seed uint64) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.rng = rand.New(rand.NewPCG(seed, seed))
}

func (pool *Pool) ListAll() []Game {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return append([]Game(nil), pool.games...)
}

// Pick n distinct active games. If there are not enough games,
// all of them are returned in pool order
func (pool *Pool) RandomSample(n int) []Game {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	active := make([]Game, 0, len(pool.games))
	for _, game := range pool.games {
		if game.Active {
			active = append(active, game)
		}
	}
	if n <= 0 {
		return []Game{}
	}
	if n >= len(active) {
		return active
	}
	sample := make([]Game, 0, n)
	for _, index := range pool.rng.Perm(len(active))[:n] {
		sample = append(sample, active[index])
	}
	return sample
}

func (pool *Pool) FindById(id string) (Game, bool) {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	if index := pool.indexOf(id); index != -1 {
		return pool.games[index], true
	}
	return Game{}, false
}

// Add a new game to the pool. The id and the date are assigned here
func (pool *Pool) Add(game Game) (Game, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	game.Name = strings.TrimSpace(game.Name)
	if game.Name == "" {
		return Game{}, ErrEmptyName
	}
	if pool.hasName(game.Name, "") {
		return Game{}, ErrDuplicateName
	}
	if game.MinPlayers > 0 && game.MaxPlayers > 0 && game.MinPlayers > game.MaxPlayers {
		return Game{}, ErrPlayerRange
	}
	game.ID = uuid.NewString()
	game.Active = true
	game.AddedAt = pool.clock.Now()
	pool.games = append(pool.games, game)
	log.Info().Msg(fmt.Sprintf("Game %s added to the pool with id %s", game.Name, game.ID))
	pool.save()
	return game, nil
}

func (pool *Pool) Remove(id string) (Game, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	index := pool.indexOf(id)
	if index == -1 {
		return Game{}, ErrGameNotFound
	}
	removed := pool.games[index]
	pool.games = append(pool.games[:index], pool.games[index+1:]...)
	log.Info().Msg(fmt.Sprintf("Game %s removed from the pool", removed.Name))
	pool.save()
	return removed, nil
}

func (pool *Pool) Edit(id string, edit GameEdit) (Game, error) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	index := pool.indexOf(id)
	if index == -1 {
		return Game{}, ErrGameNotFound
	}
	game := pool.games[index]
	if edit.Name != nil {
		name := strings.TrimSpace(*edit.Name)
		if name == "" {
			return Game{}, ErrEmptyName
		}
		if pool.hasName(name, id) {
			return Game{}, ErrDuplicateName
		}
		game.Name = name
	}
	if edit.Description != nil {
		game.Description = *edit.Description
	}
	if edit.Platform != nil {
		game.Platform = *edit.Platform
	}
	if edit.Genre != nil {
		game.Genre = *edit.Genre
	}
	if edit.MinPlayers != nil {
		game.MinPlayers = *edit.MinPlayers
	}
	if edit.MaxPlayers != nil {
		game.MaxPlayers = *edit.MaxPlayers
	}
	if game.MinPlayers > 0 && game.MaxPlayers > 0 && game.MinPlayers > game.MaxPlayers {
		return Game{}, ErrPlayerRange
	}
	pool.games[index] = game
	pool.save()
	return game, nil
}

// Inactive games stay in the pool but are never proposed
func (pool *Pool) SetActive(id string, active bool) error {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	index := pool.indexOf(id)
	if index == -1 {
		return ErrGameNotFound
	}
	pool.games[index].Active = active
	pool.save()
	return nil
}

func (pool *Pool) indexOf(id string) int {
	for i := range pool.games {
		if pool.games[i].ID == id {
			return i
		}
	}
	return -1
}

func (pool *Pool) hasName(name string, exceptId string) bool {
	for _, game := range pool.games {
		if game.ID != exceptId && strings.EqualFold(game.Name, name) {
			return true
		}
	}
	return false
}

// Must be called with the lock held
func (pool *Pool) save() {
	stored := struct {
		Games []Game `json:"games"`
	}{pool.games}
	if err := pool.database.Save(stored); err != nil {
		log.Error().Err(err).Msg("Could not save the game pool")
	}
}
