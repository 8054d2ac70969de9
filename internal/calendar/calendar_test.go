package calendar

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayValidDaysExcludesSaturdayAndSunday(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 8, 3, 0, 0, 0, 0, loc)  // Monday
	end := time.Date(2026, 8, 9, 0, 0, 0, 0, loc)     // Sunday

	days, err := Weekday{}.ValidDays(start, end, loc)
	require.NoError(t, err)
	assert.Len(t, days, 5)
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
}

func TestAlpacaValidDaysParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		_ = json.NewEncoder(w).Encode([]alpacaCalendarDay{
			{Date: "2026-08-03", Open: "09:30", Close: "16:00"},
			{Date: "2026-08-04", Open: "09:30", Close: "16:00"},
		})
	}))
	defer srv.Close()

	a := NewAlpaca(srv.URL, "key", "secret", nil)
	days, err := a.ValidDays(time.Now(), time.Now(), time.UTC)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 2026, days[0].Year())
}

func TestAlpacaValidDaysReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAlpaca(srv.URL, "key", "secret", nil)
	_, err := a.ValidDays(time.Now(), time.Now(), time.UTC)
	assert.Error(t, err)
}
