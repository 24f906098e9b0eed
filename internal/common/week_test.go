package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekLabel(t *testing.T) {
	wednesday := time.Date(2026, time.October, 14, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "Mon 12 Oct - Sun 18 Oct 2026", WeekLabel(wednesday))

	sunday := time.Date(2026, time.October, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mon 12 Oct - Sun 18 Oct 2026", WeekLabel(sunday))

	acrossYears := time.Date(2026, time.December, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Mon 28 Dec - Sun 3 Jan 2027", WeekLabel(acrossYears))
}

func TestStartOfWeek(t *testing.T) {
	monday := time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday, StartOfWeek(time.Date(2026, time.October, 18, 23, 59, 0, 0, time.UTC)))
}

func TestNextWeekly(t *testing.T) {
	mondayMorning := time.Date(2026, time.October, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC),
		NextWeekly(mondayMorning, time.Monday, 10))

	mondayAtTen := time.Date(2026, time.October, 12, 10, 0, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC),
		NextWeekly(mondayAtTen, time.Monday, 10))

	thursday := time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC),
		NextWeekly(thursday, time.Monday, 10))
}
