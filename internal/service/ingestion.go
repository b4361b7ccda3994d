package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/datasource"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/metrics"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

const stageIngest = "ingest"

// IngestionService pulls calendars and session results from a data source into the result store
type IngestionService struct {
	source       datasource.DataSource
	events       repository.EventRepository
	participants repository.ParticipantRepository
	results      repository.SessionResultRepository
	validator    *DataValidator
	normalizer   *DataNormalizer
	kinds        []models.SessionKind
	logger       *logrus.Logger
	now          func() time.Time
}

// NewIngestionService creates a new ingestion service fetching the given session kinds
func NewIngestionService(
	source datasource.DataSource,
	repos *repository.Repositories,
	kinds []models.SessionKind,
	log *logrus.Logger,
) *IngestionService {
	return &IngestionService{
		source:       source,
		events:       repos.Event,
		participants: repos.Participant,
		results:      repos.SessionResult,
		validator:    NewDataValidator(log),
		normalizer:   NewDataNormalizer(log),
		kinds:        kinds,
		logger:       log,
		now:          time.Now,
	}
}

// IngestSeasons ingests every season in order. Source errors are recovered per
// season or per (event, session) and counted; store errors end the run.
func (s *IngestionService) IngestSeasons(ctx context.Context, runLog *logger.PipelineLogger, seasons []int) (*IngestionMetrics, error) {
	m := NewIngestionMetrics()
	defer m.Finish()

	s.logger.WithFields(logrus.Fields{
		"source":   s.source.Name(),
		"seasons":  seasons,
		"sessions": len(s.kinds),
	}).Info("Starting ingestion")

	for _, season := range seasons {
		if err := s.ingestSeason(ctx, runLog, m, season); err != nil {
			return m, err
		}
	}

	s.logger.WithField("summary", m.String()).Info("Ingestion finished")
	return m, nil
}

func (s *IngestionService) ingestSeason(ctx context.Context, runLog *logger.PipelineLogger, m *IngestionMetrics, season int) error {
	events, err := s.source.FetchCalendar(ctx, season)
	if err != nil {
		if recErr := s.recoverSourceError(ctx, runLog, m, fmt.Sprintf("%d", season), "calendar", err); recErr != nil {
			return fmt.Errorf("fetch calendar %d: %w", season, recErr)
		}
		return nil
	}
	m.RecordSeason()

	now := s.now()
	for _, event := range events {
		s.normalizer.NormalizeEvent(event)
		if problems := s.validator.ValidateEvent(event); len(problems) > 0 {
			m.RecordValidationError()
			s.logger.WithFields(logrus.Fields{
				"season":   season,
				"round":    event.Round,
				"problems": problems,
			}).Warn("Skipping invalid calendar event")
			continue
		}
		if err := s.events.Upsert(ctx, event); err != nil {
			return fmt.Errorf("store event %s: %w", event.Key(), err)
		}

		pending := !event.HasTakenPlace(now)
		m.RecordEvent(pending)
		if pending {
			continue
		}
		for _, kind := range s.kinds {
			if err := s.ingestSession(ctx, runLog, m, event.Key(), kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *IngestionService) ingestSession(ctx context.Context, runLog *logger.PipelineLogger, m *IngestionMetrics, key models.EventKey, kind models.SessionKind) error {
	data, err := s.source.FetchSession(ctx, key, kind)
	if err != nil {
		if recErr := s.recoverSourceError(ctx, runLog, m, key.String(), string(kind), err); recErr != nil {
			return fmt.Errorf("fetch %s %s: %w", key, kind, recErr)
		}
		return nil
	}

	s.normalizer.NormalizeSession(data)

	for _, p := range data.Participants {
		if problems := s.validator.ValidateParticipant(p); len(problems) > 0 {
			continue
		}
		if err := s.participants.Upsert(ctx, p); err != nil {
			return fmt.Errorf("store participant %s: %w", p.DriverID, err)
		}
	}

	valid := make([]*models.SessionResult, 0, len(data.Results))
	for _, r := range data.Results {
		if problems := s.validator.ValidateResult(r); len(problems) > 0 {
			m.RecordValidationError()
			s.logger.WithFields(logrus.Fields{
				"event":    key.String(),
				"session":  kind,
				"driver":   r.DriverID,
				"problems": problems,
			}).Warn("Skipping invalid session result")
			continue
		}
		valid = append(valid, r)
	}

	written, err := s.results.UpsertBatch(ctx, valid)
	if err != nil {
		return fmt.Errorf("store results %s %s: %w", key, kind, err)
	}
	m.RecordSession(written, len(valid)-written, data.Skipped)
	metrics.RecordResultsWritten(string(kind), written)

	s.logger.WithFields(logrus.Fields{
		"event":     key.String(),
		"session":   kind,
		"written":   written,
		"unchanged": len(valid) - written,
	}).Debug("Session ingested")
	return nil
}

// recoverSourceError swallows recoverable source errors and returns anything else
func (s *IngestionService) recoverSourceError(ctx context.Context, runLog *logger.PipelineLogger, m *IngestionMetrics, where, session string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	class := ErrorClass(err)
	if class == "" {
		return err
	}
	m.RecordRecovered(class)
	metrics.RecordRecoveredError(class)
	runLog.LogRecovered(stageIngest, where, session, err)
	return nil
}
