package repository

import (
	"fmt"

	"github.com/yourusername/f1-winner/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Event         EventRepository
	Participant   ParticipantRepository
	SessionResult SessionResultRepository
	Feature       FeatureRepository
	Training      TrainingRepository
	ModelMetadata ModelMetadataRepository
	Prediction    PredictionRepository
	Forecast      ForecastRepository
	Run           RunRepository
	Locker        Locker
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Event:         NewPostgresEventRepository(db),
		Participant:   NewPostgresParticipantRepository(db),
		SessionResult: NewPostgresSessionResultRepository(db),
		Feature:       NewPostgresFeatureRepository(db),
		Training:      NewPostgresTrainingRepository(db),
		ModelMetadata: NewPostgresModelMetadataRepository(db),
		Prediction:    NewPostgresPredictionRepository(db),
		Forecast:      NewPostgresForecastRepository(db),
		Run:           NewPostgresRunRepository(db),
		Locker:        NewAdvisoryLocker(db),
	}, nil
}
