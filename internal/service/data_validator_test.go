package service

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/f1-winner/internal/datasource"
	"github.com/yourusername/f1-winner/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestValidateResult(t *testing.T) {
	v := NewDataValidator(quietLogger())
	q := 91.2

	tests := []struct {
		name       string
		mutate     func(r *models.SessionResult)
		shouldHave string
	}{
		{name: "valid race row"},
		{
			name:       "missing driver",
			mutate:     func(r *models.SessionResult) { r.DriverID = "" },
			shouldHave: "DriverID failed required",
		},
		{
			name:       "unknown session kind",
			mutate:     func(r *models.SessionResult) { r.Kind = "warmup" },
			shouldHave: "Kind failed sessionkind",
		},
		{
			name:       "unknown status",
			mutate:     func(r *models.SessionResult) { r.Status = "crashed" },
			shouldHave: "Status failed resultstatus",
		},
		{
			name:       "qualifying stage time on a race row",
			mutate:     func(r *models.SessionResult) { r.Q1Seconds = &q },
			shouldHave: "Q1Seconds failed qualifyingonly",
		},
		{
			name: "disqualified with a position",
			mutate: func(r *models.SessionResult) {
				r.Status = models.StatusDisqualified
			},
			shouldHave: "Position failed disqualifiednoposition",
		},
		{
			name:       "non-positive position",
			mutate:     func(r *models.SessionResult) { r.Position = intPtr(0) },
			shouldHave: "Position failed gt=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := raceRow(1, "norris", "mclaren", 1)
			if tt.mutate != nil {
				tt.mutate(&r)
			}
			problems := v.ValidateResult(&r)
			if tt.shouldHave == "" {
				assert.Empty(t, problems)
				return
			}
			assert.Contains(t, problems, tt.shouldHave)
		})
	}
}

func TestValidateEvent(t *testing.T) {
	v := NewDataValidator(quietLogger())

	assert.Empty(t, v.ValidateEvent(&models.Event{Season: 2025, Round: 1, ScheduledDate: time.Now()}))
	assert.Contains(t, v.ValidateEvent(&models.Event{Season: 2025}), "Round failed required")
	assert.Contains(t, v.ValidateEvent(&models.Event{Season: 1900, Round: 1}), "Season failed gte=1950")
}

func TestNormalizeSession(t *testing.T) {
	n := NewDataNormalizer(quietLogger())
	data := &datasource.SessionData{
		Results: []*models.SessionResult{
			{DriverID: " Max Verstappen ", TeamID: "Red Bull Racing", RetirementReason: " Engine "},
			{DriverID: "sainz", TeamID: "williams"},
		},
		Participants: []*models.Participant{{DriverID: "Max-Verstappen", DisplayName: " Max Verstappen "}},
	}

	n.NormalizeSession(data)

	assert.Equal(t, "max_verstappen", data.Results[0].DriverID)
	assert.Equal(t, "red_bull", data.Results[0].TeamID)
	assert.Equal(t, "Engine", data.Results[0].RetirementReason)
	assert.True(t, data.Results[0].Mechanical)
	assert.Equal(t, models.StatusUnknown, data.Results[1].Status)
	assert.Equal(t, "williams", data.Results[1].TeamID)
	assert.Equal(t, "max_verstappen", data.Participants[0].DriverID)
	assert.Equal(t, "Max Verstappen", data.Participants[0].DisplayName)
}
