package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
)

const f1APISourceName = "f1api"

// maxBodyBytes bounds a single response; the largest real payload is a few hundred KB.
const maxBodyBytes = 8 << 20

// sessionEndpoint is the URL suffix and result keys for one session kind
type sessionEndpoint struct {
	path string
	keys []string
}

var f1APISessions = map[models.SessionKind]sessionEndpoint{
	models.SessionPractice1:        {"fp1", []string{"fp1Results", "results"}},
	models.SessionPractice2:        {"fp2", []string{"fp2Results", "results"}},
	models.SessionPractice3:        {"fp3", []string{"fp3Results", "results"}},
	models.SessionQualifying:       {"qualy", []string{"qualyResults", "qualifyingResults", "results"}},
	models.SessionSprintQualifying: {"sprint/qualy", []string{"sprintQualyResults", "sprintQualifyingResults", "results"}},
	models.SessionSprintRace:       {"sprint/race", []string{"sprintRaceResults", "sprintResults", "results"}},
	models.SessionRace:             {"race", []string{"results", "raceResults"}},
}

// F1APIClient fetches data from an f1api.dev-compatible JSON API
type F1APIClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	logger     *logrus.Entry
	now        func() time.Time
}

// NewF1APIClient creates a new client rooted at baseURL
func NewF1APIClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *F1APIClient {
	return &F1APIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.WithField("source", f1APISourceName),
		now:        time.Now,
	}
}

// Name returns the name of the data source
func (c *F1APIClient) Name() string {
	return f1APISourceName
}

// fetch GETs path and decodes the body into a generic object, classifying every failure
func (c *F1APIClient) fetch(ctx context.Context, path string) (object, error) {
	url := c.baseURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, NewSourceError(c.Name(), ErrCodeCircuitOpen, "circuit breaker open", err)
		}
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "request to "+path+" failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewSourceError(c.Name(), ErrCodeNotFound, path+" not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewSourceError(c.Name(), ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return nil, NewSourceError(c.Name(), ErrCodeServerError, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeNetworkError, "failed to read response", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, NewSourceError(c.Name(), ErrCodeEmpty, path+" returned an empty body", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root object
	if err := dec.Decode(&root); err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "failed to parse response", err)
	}
	return root, nil
}

// FetchCalendar retrieves every event of a season
func (c *F1APIClient) FetchCalendar(ctx context.Context, season int) ([]*models.Event, error) {
	root, err := c.fetch(ctx, fmt.Sprintf("%d/races", season))
	if err != nil {
		return nil, err
	}

	list, ok := root["races"].([]any)
	if !ok {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "calendar has no races list", nil)
	}

	events := make([]*models.Event, 0, len(list))
	for _, item := range list {
		o, ok := item.(object)
		if !ok {
			continue
		}
		event, ok := c.convertEvent(season, o)
		if !ok {
			c.logger.WithField("season", season).Debug("Skipping calendar entry without round or date")
			continue
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, NewSourceError(c.Name(), ErrCodeEmpty, fmt.Sprintf("no events for season %d", season), nil)
	}
	return events, nil
}

func (c *F1APIClient) convertEvent(season int, o object) (*models.Event, bool) {
	roundValue, ok := firstValue(o, "round")
	if !ok {
		return nil, false
	}
	round, ok := parseInt(roundValue)
	if !ok || round <= 0 {
		return nil, false
	}

	date, ok := parseDate(firstString(o, "schedule.race.date", "date", "raceDate"))
	if !ok {
		return nil, false
	}

	event := &models.Event{
		Season:        season,
		Round:         round,
		Name:          firstString(o, "raceName", "name"),
		Circuit:       firstString(o, "circuit.circuitName", "circuit.name", "circuitName"),
		Country:       firstString(o, "circuit.country", "country"),
		ScheduledDate: date,
	}
	if v, ok := firstValue(o, "laps"); ok {
		if laps, ok := parseInt(v); ok && laps > 0 {
			event.Laps = &laps
		}
	}
	return event, true
}

// FetchSession retrieves all participant results of one session
func (c *F1APIClient) FetchSession(ctx context.Context, key models.EventKey, kind models.SessionKind) (*SessionData, error) {
	endpoint, ok := f1APISessions[kind]
	if !ok {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, "unsupported session kind "+string(kind), nil)
	}

	root, err := c.fetch(ctx, fmt.Sprintf("%d/%d/%s", key.Season, key.Round, endpoint.path))
	if err != nil {
		return nil, err
	}

	recs, found, err := records(root, endpoint.keys...)
	if err != nil {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("%s %s", key, kind), err)
	}
	if !found || len(recs) == 0 {
		return nil, NewSourceError(c.Name(), ErrCodeEmpty, fmt.Sprintf("no %s results for %s", kind, key), nil)
	}

	data := &SessionData{Event: key, Kind: kind}
	ingestedAt := c.now().UTC()
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		result, participant := convertResult(key, kind, rec)
		if result == nil || seen[result.DriverID] {
			data.Skipped++
			continue
		}
		seen[result.DriverID] = true
		result.IngestedAt = ingestedAt
		data.Results = append(data.Results, result)
		data.Participants = append(data.Participants, participant)
	}

	if len(data.Results) == 0 {
		return nil, NewSourceError(c.Name(), ErrCodeInvalidData, fmt.Sprintf("%s %s records carry no driver ids", key, kind), nil)
	}
	return data, nil
}

// convertResult maps one provider record onto a SessionResult; nil when the record has no driver id
func convertResult(key models.EventKey, kind models.SessionKind, rec object) (*models.SessionResult, *models.Participant) {
	driverID := firstString(rec, "driverId", "driver.driverId", "driver_id")
	if driverID == "" {
		return nil, nil
	}

	res := &models.SessionResult{
		Season:   key.Season,
		Round:    key.Round,
		DriverID: driverID,
		Kind:     kind,
		TeamID:   firstString(rec, "teamId", "team.teamId", "team_id", "constructorId"),
		Status:   models.StatusUnknown,
	}

	switch kind {
	case models.SessionQualifying, models.SessionSprintQualifying:
		res.Q1Seconds = lapTimeAt(rec, "q1", "sq1")
		res.Q2Seconds = lapTimeAt(rec, "q2", "sq2")
		res.Q3Seconds = lapTimeAt(rec, "q3", "sq3")
		if v, ok := firstValue(rec, "gridPosition", "position", "qualyPosition"); ok {
			res.GridPosition, _ = parsePosition(v)
		}
		if v, ok := firstValue(rec, "position", "qualyPosition", "gridPosition"); ok {
			res.Position, res.Status = parsePosition(v)
		}
		res.TimeSeconds = bestOf(res.Q1Seconds, res.Q2Seconds, res.Q3Seconds)

	case models.SessionPractice1, models.SessionPractice2, models.SessionPractice3:
		res.TimeSeconds = lapTimeAt(rec, "time", "bestTime", "best_time")
		if v, ok := firstValue(rec, "position"); ok {
			res.Position, res.Status = parsePosition(v)
		}

	default:
		res.TimeSeconds = lapTimeAt(rec, "time", "totalTime")
		if v, ok := firstValue(rec, "grid", "gridPosition"); ok {
			res.GridPosition, _ = parsePosition(v)
		}
		if v, ok := firstValue(rec, "position", "finishingPosition"); ok {
			res.Position, res.Status = parsePosition(v)
		}
		res.RetirementReason = firstString(rec, "retired", "retirementReason")
		if res.RetirementReason != "" && res.Status != models.StatusDisqualified {
			// a retiree past the distance threshold keeps a classified position
			res.Status = models.StatusRetired
		}
		if status := strings.ToLower(firstString(rec, "status")); strings.Contains(status, "disq") {
			res.Status = models.StatusDisqualified
			res.Position = nil
		}
		res.Mechanical = models.IsMechanicalFailure(res.RetirementReason)
	}

	participant := &models.Participant{
		DriverID:    driverID,
		DisplayName: strings.TrimSpace(firstString(rec, "driver.name", "name") + " " + firstString(rec, "driver.surname", "surname")),
	}
	return res, participant
}

func lapTimeAt(rec object, paths ...string) *float64 {
	if v, ok := firstValue(rec, paths...); ok {
		return parseLapTime(v)
	}
	return nil
}

func bestOf(times ...*float64) *float64 {
	var best *float64
	for _, t := range times {
		if t != nil && (best == nil || *t < *best) {
			v := *t
			best = &v
		}
	}
	return best
}
