package service

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/datasource"
	"github.com/yourusername/f1-winner/internal/models"
)

// DataNormalizer maps provider identifiers and free text onto canonical forms
type DataNormalizer struct {
	teamAliases map[string]string // provider team ids to canonical ids
	logger      *logrus.Logger
}

// NewDataNormalizer creates a new data normalizer
func NewDataNormalizer(logger *logrus.Logger) *DataNormalizer {
	return &DataNormalizer{
		teamAliases: buildTeamAliasMap(),
		logger:      logger,
	}
}

// NormalizeEvent tidies the descriptive fields of a calendar event in place
func (n *DataNormalizer) NormalizeEvent(event *models.Event) {
	event.Name = strings.TrimSpace(event.Name)
	event.Circuit = strings.TrimSpace(event.Circuit)
	event.Country = strings.TrimSpace(event.Country)
}

// NormalizeSession canonicalises identifiers and retirement data of a decoded session in place
func (n *DataNormalizer) NormalizeSession(data *datasource.SessionData) {
	for _, p := range data.Participants {
		p.DriverID = NormalizeID(p.DriverID)
		p.DisplayName = strings.TrimSpace(p.DisplayName)
	}
	for _, r := range data.Results {
		r.DriverID = NormalizeID(r.DriverID)
		r.TeamID = n.NormalizeTeamID(r.TeamID)
		r.RetirementReason = strings.TrimSpace(r.RetirementReason)
		if r.Status == "" {
			r.Status = models.StatusUnknown
		}
		if r.RetirementReason != "" {
			r.Mechanical = models.IsMechanicalFailure(r.RetirementReason)
		}
	}
}

// NormalizeTeamID returns the canonical id for a provider team id
func (n *DataNormalizer) NormalizeTeamID(teamID string) string {
	id := NormalizeID(teamID)
	if canonical, ok := n.teamAliases[id]; ok {
		return canonical
	}
	return id
}

// NormalizeID lowercases an identifier and joins words with underscores
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.NewReplacer(" ", "_", "-", "_").Replace(id)
	return id
}

// buildTeamAliasMap collects spelling variants seen across providers
func buildTeamAliasMap() map[string]string {
	return map[string]string{
		"red_bull_racing":      "red_bull",
		"redbull":              "red_bull",
		"oracle_red_bull":      "red_bull",
		"mercedes_amg":         "mercedes",
		"ferrari_scuderia":     "ferrari",
		"scuderia_ferrari":     "ferrari",
		"mclaren_f1_team":      "mclaren",
		"aston_martin_f1_team": "aston_martin",
		"alpine_f1_team":       "alpine",
		"williams_racing":      "williams",
		"haas_f1_team":         "haas",
		"haas_f1":              "haas",
		"stake_f1_team":        "sauber",
		"kick_sauber":          "sauber",
		"racing_bulls":         "rb",
		"visa_cash_app_rb":     "rb",
	}
}
