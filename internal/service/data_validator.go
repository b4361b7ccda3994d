package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/models"
)

// DataValidator checks decoded records before they reach the store
type DataValidator struct {
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewDataValidator creates a new data validator
func NewDataValidator(logger *logrus.Logger) *DataValidator {
	v := validator.New()
	v.RegisterStructValidation(sessionResultRules, models.SessionResult{})
	return &DataValidator{validate: v, logger: logger}
}

// ValidateEvent validates an event's key fields
func (v *DataValidator) ValidateEvent(event *models.Event) []string {
	return describe(v.validate.Struct(event))
}

// ValidateResult validates one session result
func (v *DataValidator) ValidateResult(result *models.SessionResult) []string {
	return describe(v.validate.Struct(result))
}

// ValidateParticipant validates a participant record
func (v *DataValidator) ValidateParticipant(p *models.Participant) []string {
	return describe(v.validate.Struct(p))
}

func sessionResultRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(models.SessionResult)

	if _, ok := models.ParseSessionKind(string(r.Kind)); !ok {
		sl.ReportError(r.Kind, "Kind", "Kind", "sessionkind", "")
	}
	switch r.Status {
	case models.StatusFinished, models.StatusRetired, models.StatusDisqualified, models.StatusUnknown:
	default:
		sl.ReportError(r.Status, "Status", "Status", "resultstatus", "")
	}
	if r.Kind != models.SessionQualifying && r.Kind != models.SessionSprintQualifying {
		if r.Q1Seconds != nil || r.Q2Seconds != nil || r.Q3Seconds != nil {
			sl.ReportError(r.Q1Seconds, "Q1Seconds", "Q1Seconds", "qualifyingonly", "")
		}
	}
	if r.Status == models.StatusDisqualified && r.Position != nil {
		sl.ReportError(r.Position, "Position", "Position", "disqualifiednoposition", "")
	}
}

func describe(err error) []string {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		out = append(out, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return out
}
