package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/f1-winner/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*F1APIClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 3,
		CircuitCooldown:   time.Hour,
	}
	return NewF1APIClient(NewRateLimitedHTTPClient(cfg, log), srv.URL, "", log), srv
}

func serveJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

var testEvent = models.EventKey{Season: 2024, Round: 5}

func TestParseLapTime(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"1:32.500", 92.5, true},
		{"92.5", 92.5, true},
		{"1:31:44.742", 5504.742, true},
		{json.Number("88.25"), 88.25, true},
		{"+5.123", 0, false},
		{"+1 lap", 0, false},
		{"DNF", 0, false},
		{"", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got := parseLapTime(tt.in)
		if !tt.ok {
			assert.Nil(t, got, "%v", tt.in)
			continue
		}
		require.NotNil(t, got, "%v", tt.in)
		assert.InDelta(t, tt.want, *got, 1e-9)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		status models.ResultStatus
	}{
		{json.Number("3"), 3, models.StatusFinished},
		{"12", 12, models.StatusFinished},
		{"NC", 0, models.StatusRetired},
		{"DQ", 0, models.StatusDisqualified},
		{"?", 0, models.StatusUnknown},
		{json.Number("0"), 0, models.StatusUnknown},
	}

	for _, tt := range tests {
		pos, status := parsePosition(tt.in)
		assert.Equal(t, tt.status, status, "%v", tt.in)
		if tt.want == 0 {
			assert.Nil(t, pos, "%v", tt.in)
		} else {
			require.NotNil(t, pos)
			assert.Equal(t, tt.want, *pos)
		}
	}
}

func TestFetchRaceNestedShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024/5/race", r.URL.Path)
		serveJSON(`{"races": {"raceId": "x", "results": [
			{"position": 1, "grid": "2", "time": "1:31:44.742",
			 "driver": {"driverId": "max_verstappen", "name": "Max", "surname": "Verstappen"},
			 "team": {"teamId": "red_bull"}},
			{"position": "NC", "grid": 5, "retired": "Engine",
			 "driver": {"driverId": "lando_norris"}, "team": {"teamId": "mclaren"}},
			{"position": "DQ", "driver": {"driverId": "lewis_hamilton"}, "team": {"teamId": "mercedes"}},
			{"position": 4, "team": {"teamId": "nobody"}}
		]}}`)(w, r)
	})

	data, err := client.FetchSession(context.Background(), testEvent, models.SessionRace)
	require.NoError(t, err)
	require.Len(t, data.Results, 3)
	assert.Equal(t, 1, data.Skipped)

	winner := data.Results[0]
	assert.Equal(t, "max_verstappen", winner.DriverID)
	assert.Equal(t, "red_bull", winner.TeamID)
	require.NotNil(t, winner.Position)
	assert.Equal(t, 1, *winner.Position)
	require.NotNil(t, winner.GridPosition)
	assert.Equal(t, 2, *winner.GridPosition)
	assert.Equal(t, models.StatusFinished, winner.Status)
	assert.Equal(t, "Max Verstappen", data.Participants[0].DisplayName)

	dnf := data.Results[1]
	assert.Nil(t, dnf.Position)
	assert.Equal(t, models.StatusRetired, dnf.Status)
	assert.True(t, dnf.Mechanical)

	dq := data.Results[2]
	assert.Nil(t, dq.Position)
	assert.Equal(t, models.StatusDisqualified, dq.Status)
}

func TestFetchQualifyingFlatShapeWithMissingStages(t *testing.T) {
	client, _ := newTestClient(t, serveJSON(`{"races": [{"qualyResults": [
		{"driverId": "a", "teamId": "t1", "q1": "1:30.100", "q2": "1:29.900", "q3": "1:29.500", "gridPosition": 1},
		{"driverId": "b", "teamId": "t2", "q1": "1:32.500", "q2": null, "q3": null, "gridPosition": "18"}
	]}]}`))

	data, err := client.FetchSession(context.Background(), testEvent, models.SessionQualifying)
	require.NoError(t, err)
	require.Len(t, data.Results, 2)

	b := data.Results[1]
	require.NotNil(t, b.Q1Seconds)
	assert.InDelta(t, 92.5, *b.Q1Seconds, 1e-9)
	assert.Nil(t, b.Q2Seconds)
	assert.Nil(t, b.Q3Seconds)
	require.NotNil(t, b.GridPosition)
	assert.Equal(t, 18, *b.GridPosition)

	a := data.Results[0]
	require.NotNil(t, a.TimeSeconds)
	assert.InDelta(t, 89.5, *a.TimeSeconds, 1e-9)
}

func TestFetchSessionErrorClasses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
			want:    ErrNoData,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			want:    ErrSourceUnavailable,
		},
		{
			name:    "invalid json",
			handler: serveJSON(`{"races": [`),
			want:    ErrMalformedData,
		},
		{
			name:    "results key missing",
			handler: serveJSON(`{"races": {"raceId": "x"}}`),
			want:    ErrNoData,
		},
		{
			name:    "results not a list",
			handler: serveJSON(`{"races": {"results": "pending"}}`),
			want:    ErrMalformedData,
		},
		{
			name:    "empty body",
			handler: serveJSON(``),
			want:    ErrNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.FetchSession(context.Background(), testEvent, models.SessionRace)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.True(t, IsRecoverable(err))

			var srcErr *SourceError
			assert.True(t, errors.As(err, &srcErr))
		})
	}
}

func TestFetchCalendar(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2024/races", r.URL.Path)
		serveJSON(`{"races": [
			{"round": "1", "raceName": "Bahrain GP", "laps": 57,
			 "schedule": {"race": {"date": "2024-03-02", "time": "15:00:00Z"}},
			 "circuit": {"circuitName": "Sakhir", "country": "Bahrain"}},
			{"round": 2, "raceName": "Saudi GP", "date": "2024-03-09"},
			{"raceName": "broken"}
		]}`)(w, r)
	})

	events, err := client.FetchCalendar(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, 1, events[0].Round)
	assert.Equal(t, "Sakhir", events[0].Circuit)
	require.NotNil(t, events[0].Laps)
	assert.Equal(t, 57, *events[0].Laps)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), events[0].ScheduledDate)
	assert.Equal(t, 2, events[1].Round)
	assert.Nil(t, events[1].Laps)
}

func TestCircuitBreakerFailsFast(t *testing.T) {
	var hits int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchSession(context.Background(), testEvent, models.SessionRace)
		require.ErrorIs(t, err, ErrSourceUnavailable)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Equal(t, CircuitOpen, client.httpClient.BreakerState())
}

func TestCircuitBreakerHalfOpenProbe(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cb := NewCircuitBreaker(1, time.Minute, log)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }

	cb.RecordFailure(errors.New("boom"))
	ok, _ := cb.Allow()
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = cb.Allow()
	assert.True(t, ok)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}
