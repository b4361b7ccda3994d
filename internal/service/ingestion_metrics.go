package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/f1-winner/internal/datasource"
)

// Recovered error classes
const (
	ClassSourceUnavailable = "source_unavailable"
	ClassMalformed         = "malformed"
	ClassNoData            = "no_data"
)

// IngestionMetrics tracks statistics about one ingestion run
type IngestionMetrics struct {
	mu               sync.RWMutex
	StartTime        time.Time
	Duration         time.Duration
	Seasons          int
	EventsSeen       int
	EventsPending    int
	SessionsFetched  int
	ResultsWritten   int
	ResultsUnchanged int
	RecordsSkipped   int
	ValidationErrors int
	Recovered        map[string]int
}

// NewIngestionMetrics creates a new metrics tracker
func NewIngestionMetrics() *IngestionMetrics {
	return &IngestionMetrics{
		StartTime: time.Now(),
		Recovered: make(map[string]int),
	}
}

// RecordSeason counts a season whose calendar was read
func (m *IngestionMetrics) RecordSeason() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seasons++
}

// RecordEvent counts a calendar event; pending events have not taken place yet
func (m *IngestionMetrics) RecordEvent(pending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsSeen++
	if pending {
		m.EventsPending++
	}
}

// RecordSession counts a fetched session and how many of its results changed the store
func (m *IngestionMetrics) RecordSession(written, unchanged, skipped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SessionsFetched++
	m.ResultsWritten += written
	m.ResultsUnchanged += unchanged
	m.RecordsSkipped += skipped
}

// RecordValidationError increments validation error count
func (m *IngestionMetrics) RecordValidationError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
}

// RecordRecovered counts a data source error the run continued past
func (m *IngestionMetrics) RecordRecovered(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recovered[class]++
}

// TotalRecovered returns the number of recovered errors across classes
func (m *IngestionMetrics) TotalRecovered() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.Recovered {
		total += n
	}
	return total
}

// Finish stamps the run duration
func (m *IngestionMetrics) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Duration = time.Since(m.StartTime)
}

// String returns a human-readable summary
func (m *IngestionMetrics) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	classes := make([]string, 0, len(m.Recovered))
	for class, n := range m.Recovered {
		classes = append(classes, fmt.Sprintf("%s=%d", class, n))
	}
	sort.Strings(classes)

	return fmt.Sprintf(
		"seasons=%d events=%d pending=%d sessions=%d written=%d unchanged=%d skipped=%d invalid=%d recovered=[%s] duration=%v",
		m.Seasons, m.EventsSeen, m.EventsPending, m.SessionsFetched,
		m.ResultsWritten, m.ResultsUnchanged, m.RecordsSkipped, m.ValidationErrors,
		strings.Join(classes, " "), m.Duration,
	)
}

// ErrorClass names the recovered class of a data source error, or "" when the error is not recoverable
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, datasource.ErrNoData):
		return ClassNoData
	case errors.Is(err, datasource.ErrMalformedData):
		return ClassMalformed
	case errors.Is(err, datasource.ErrSourceUnavailable):
		return ClassSourceUnavailable
	default:
		return ""
	}
}
