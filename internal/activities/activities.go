package activities

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gamenight/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrEmptyName        = errors.New("activity name cannot be empty")
	ErrInvalidTime      = errors.New("activity time must look like HH:MM")
)

// A recurring activity that happens every week on the same day
type Activity struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Time        string       `json:"time,omitempty"`
	Weekday     time.Weekday `json:"weekday"`
	Active      bool         `json:"active"`
	AddedBy     string       `json:"added_by"`
	AddedAt     time.Time    `json:"added_at"`
}

// Fields left nil are not changed
type ActivityEdit struct {
	Name        *string
	Description *string
	Location    *string
	Time        *string
	Weekday     *time.Weekday
}

type Store struct {
	mu         sync.Mutex
	database   common.Database
	clock      common.Clock
	activities []Activity
}

func NewStore(dbFilename string, clock common.Clock) (*Store, error) {
	store := &Store{database: common.NewDatabase(dbFilename), clock: clock, activities: []Activity{}}
	var stored struct {
		Activities []Activity `json:"activities"`
	}
	if err := store.database.Load(&stored); err != nil {
		return nil, err
	}
	if stored.Activities != nil {
		store.activities = stored.Activities
	}
	log.Info().Msg(fmt.Sprintf("Loaded %d extra activities", len(store.activities)))
	return store, nil
}

func (store *Store) List(activeOnly bool) []Activity {
	store.mu.Lock()
	defer store.mu.Unlock()

	result := []Activity{}
	for _, activity := range store.activities {
		if !activeOnly || activity.Active {
			result = append(result, activity)
		}
	}
	return result
}

// Active activities in week order, Monday first, then by time of day
func (store *Store) ForWeek() []Activity {
	week := store.List(true)
	mondayFirst := func(day time.Weekday) int {
		return (int(day) + 6) % 7
	}
	sort.SliceStable(week, func(i, j int) bool {
		if week[i].Weekday != week[j].Weekday {
			return mondayFirst(week[i].Weekday) < mondayFirst(week[j].Weekday)
		}
		return week[i].Time < week[j].Time
	})
	return week
}

func (store *Store) FindById(id string) (Activity, bool) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if index := store.indexOf(id); index != -1 {
		return store.activities[index], true
	}
	return Activity{}, false
}

func (store *Store) Add(activity Activity) (Activity, error) {
	activity.Name = strings.TrimSpace(activity.Name)
	if activity.Name == "" {
		return Activity{}, ErrEmptyName
	}
	if activity.Time != "" {
		if _, err := time.Parse("15:04", activity.Time); err != nil {
			return Activity{}, ErrInvalidTime
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	activity.ID = uuid.NewString()
	activity.Active = true
	activity.AddedAt = store.clock.Now()
	store.activities = append(store.activities, activity)
	log.Info().Msg(fmt.Sprintf("Activity %s added for %s", activity.Name, activity.Weekday))
	store.save()
	return activity, nil
}

func (store *Store) Remove(id string) (Activity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	index := store.indexOf(id)
	if index == -1 {
		return Activity{}, ErrActivityNotFound
	}
	removed := store.activities[index]
	store.activities = append(store.activities[:index], store.activities[index+1:]...)
	store.save()
	return removed, nil
}

func (store *Store) Edit(id string, edit ActivityEdit) (Activity, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	index := store.indexOf(id)
	if index == -1 {
		return Activity{}, ErrActivityNotFound
	}
	activity := store.activities[index]
	if edit.Name != nil {
		name := strings.TrimSpace(*edit.Name)
		if name == "" {
			return Activity{}, ErrEmptyName
		}
		activity.Name = name
	}
	if edit.Time != nil {
		if *edit.Time != "" {
			if _, err := time.Parse("15:04", *edit.Time); err != nil {
				return Activity{}, ErrInvalidTime
			}
		}
		activity.Time = *edit.Time
	}
	if edit.Description != nil {
		activity.Description = *edit.Description
	}
	if edit.Location != nil {
		activity.Location = *edit.Location
	}
	if edit.Weekday != nil {
		activity.Weekday = *edit.Weekday
	}
	store.activities[index] = activity
	log.Info().Msg(fmt.Sprintf("Activity %s edited", activity.ID))
	store.save()
	return activity, nil
}

func (store *Store) SetActive(id string, active bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	index := store.indexOf(id)
	if index == -1 {
		return ErrActivityNotFound
	}
	store.activities[index].Active = active
	store.save()
	return nil
}

// Parse a weekday name in english, full or abbreviated
func ParseWeekday(word string) (time.Weekday, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if word == name || (len(word) >= 3 && strings.HasPrefix(name, word)) {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("%s is not a day of the week", word)
}

func (store *Store) indexOf(id string) int {
	for i := range store.activities {
		if store.activities[i].ID == id {
			return i
		}
	}
	return -1
}

func (store *Store) save() {
	stored := struct {
		Activities []Activity `json:"activities"`
	}{store.activities}
	if err := store.database.Save(stored); err != nil {
		log.Error().Err(err).Msg("Could not save extra activities")
	}
}
