package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/f1-winner/internal/config"
	"github.com/yourusername/f1-winner/internal/logger"
	"github.com/yourusername/f1-winner/internal/metrics"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/repository"
)

// TrainOptions controls a training run
type TrainOptions struct {
	ModelName       string
	MinRows         int
	HoldoutFraction float64
	Iterations      int
	LearningRate    float64
	L2              float64
	TrainRegressor  bool
}

// TrainOptionsFromConfig maps the training configuration section onto TrainOptions
func TrainOptionsFromConfig(cfg config.TrainingConfig) TrainOptions {
	return TrainOptions{
		ModelName:       cfg.ModelName,
		MinRows:         cfg.MinRows,
		HoldoutFraction: cfg.HoldoutFraction,
		Iterations:      cfg.Iterations,
		LearningRate:    cfg.LearningRate,
		L2:              cfg.L2,
		TrainRegressor:  cfg.TrainRegressor,
	}
}

// Trainer fits the win classifier on the training table and publishes it
type Trainer struct {
	training repository.TrainingRepository
	metadata repository.ModelMetadataRepository
	store    ArtifactStore
	loader   *Loader
	opts     TrainOptions
	logger   *logrus.Logger
	mlLog    *logger.MLLogger
	audit    *logger.AuditLogger
	now      func() time.Time
}

// NewTrainer creates a trainer. loader may be nil; when set its cache is
// dropped after every publish.
func NewTrainer(repos *repository.Repositories, store ArtifactStore, loader *Loader, opts TrainOptions, log *logrus.Logger) *Trainer {
	return &Trainer{
		training: repos.Training,
		metadata: repos.ModelMetadata,
		store:    store,
		loader:   loader,
		opts:     opts,
		logger:   log,
		mlLog:    logger.NewMLLogger(log),
		audit:    logger.NewAuditLogger(log),
		now:      time.Now,
	}
}

// Train loads the training table and fits on it
func (t *Trainer) Train(ctx context.Context) (*models.ModelMetadata, error) {
	rows, err := t.training.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training rows: %w", err)
	}
	return t.Fit(ctx, rows)
}

// Fit trains on rows and publishes the artifact. A refusal returns a
// *RefusalError and leaves the current artifact and metadata untouched.
func (t *Trainer) Fit(ctx context.Context, rows []*models.TrainingRow) (*models.ModelMetadata, error) {
	if len(rows) < t.opts.MinRows {
		metrics.RecordTrainingRefusal("insufficient_data")
		return nil, &RefusalError{
			Reason: ErrInsufficientData,
			Rows:   len(rows),
			Detail: fmt.Sprintf("need at least %d", t.opts.MinRows),
		}
	}
	if !hasBothClasses(rows) {
		metrics.RecordTrainingRefusal("no_label_variance")
		return nil, &RefusalError{Reason: ErrNoLabelVariance, Rows: len(rows)}
	}

	train, holdout := splitByEvent(rows, t.opts.HoldoutFraction)
	if len(holdout) > 0 && !hasBothClasses(train) {
		t.logger.WithField("holdout_rows", len(holdout)).Warn("Training split has a single class, evaluating in-sample")
		train, holdout = rows, nil
	}

	art, err := FitArtifact(train, t.opts)
	if err != nil {
		return nil, err
	}
	for j, name := range FeatureNames {
		t.mlLog.LogImputation(name, art.Imputer.Medians[j], art.Imputer.Observed[j])
	}

	evalRows := holdout
	if len(evalRows) == 0 {
		evalRows = train
	}
	model, err := NewModel(art)
	if err != nil {
		return nil, err
	}
	ev, err := EvaluateRows(model, evalRows)
	if err != nil {
		return nil, err
	}
	for _, missing := range ev.Missing {
		t.mlLog.LogMetricUnavailable(t.opts.ModelName, missing, "evaluated split has a single class")
	}

	art.Metadata = models.ModelMetadata{
		Name:            t.opts.ModelName,
		Algorithm:       AlgorithmLogistic,
		TrainedAt:       t.now().UTC(),
		TrainingRows:    len(train),
		HoldoutRows:     len(holdout),
		HeldOut:         len(holdout) > 0,
		Accuracy:        ev.Accuracy,
		TopPickAccuracy: ev.TopPickAccuracy,
		ROCAUC:          ev.ROCAUC,
		MissingMetrics:  ev.Missing,
		HasRegressor:    art.Regressor != nil,
	}

	return t.publish(ctx, art, ev)
}

// FitArtifact fits the imputer, scaler, classifier and optional regressor on
// rows. It neither evaluates nor publishes; Metadata is left empty.
func FitArtifact(rows []*models.TrainingRow, opts TrainOptions) (*Artifact, error) {
	art := &Artifact{
		Name:         opts.ModelName,
		Algorithm:    AlgorithmLogistic,
		FeatureNames: append([]string(nil), FeatureNames...),
	}

	raw := VectorizeAll(featureRows(rows))
	if err := art.Imputer.Fit(raw); err != nil {
		return nil, fmt.Errorf("fit imputer: %w", err)
	}
	imputed, err := art.Imputer.Transform(raw)
	if err != nil {
		return nil, err
	}
	if err := art.Scaler.Fit(imputed); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	X, err := art.Scaler.Transform(imputed)
	if err != nil {
		return nil, err
	}

	art.Classifier = NewLogisticRegression(opts.Iterations, opts.LearningRate, opts.L2)
	if err := art.Classifier.Fit(X, wonLabels(rows)); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	if opts.TrainRegressor {
		art.Regressor = &LinearRegressor{}
		if err := art.Regressor.Fit(X, positions(rows)); err != nil {
			return nil, fmt.Errorf("fit regressor: %w", err)
		}
	}
	return art, nil
}

// EvaluateRows scores a fitted model on labelled rows
func EvaluateRows(model *Model, rows []*models.TrainingRow) (Evaluation, error) {
	probs, err := model.PredictWin(featureRows(rows))
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate: %w", err)
	}
	return Evaluate(probs, wonLabels(rows), eventKeys(rows)), nil
}

// HasBothClasses reports whether rows contain both a winner and a non-winner
func HasBothClasses(rows []*models.TrainingRow) bool {
	return hasBothClasses(rows)
}

func (t *Trainer) publish(ctx context.Context, art *Artifact, ev Evaluation) (*models.ModelMetadata, error) {
	var previous string
	prev, err := t.metadata.Get(ctx, art.Name)
	switch {
	case err == nil:
		previous = prev.Digest
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("load model metadata: %w", err)
	}

	digest, err := t.store.Put(ctx, art)
	if err != nil {
		return nil, fmt.Errorf("publish artifact: %w", err)
	}
	meta := art.Metadata
	meta.Digest = digest
	if t.loader != nil {
		t.loader.Invalidate()
	}
	// the pointer has already moved: readers of model_metadata now lag the served artifact
	if err := t.metadata.Upsert(ctx, &meta); err != nil {
		t.logger.WithError(err).WithFields(logrus.Fields{
			"model":           art.Name,
			"digest":          digest,
			"previous_digest": previous,
		}).Error("Artifact published but model metadata mirror is stale")
		return nil, fmt.Errorf("store model metadata for published artifact %s: %w", digest, err)
	}

	t.audit.LogArtifactPublished(art.Name, previous, digest)
	t.mlLog.LogModelTraining(art.Name, digest, meta.TrainingRows, meta.HoldoutRows, ev.AsMap(), meta.HeldOut)
	metrics.RecordModelTrained(art.Name, meta.Accuracy, meta.ROCAUC)
	return &meta, nil
}

// splitByEvent holds out the chronologically last fraction of events
func splitByEvent(rows []*models.TrainingRow, fraction float64) (train, holdout []*models.TrainingRow) {
	sorted := append([]*models.TrainingRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].EventKey(), sorted[j].EventKey()
		if a != b {
			return a.Before(b)
		}
		return sorted[i].DriverID < sorted[j].DriverID
	})

	var keys []models.EventKey
	for _, r := range sorted {
		if len(keys) == 0 || keys[len(keys)-1] != r.EventKey() {
			keys = append(keys, r.EventKey())
		}
	}
	n := int(math.Floor(fraction * float64(len(keys))))
	if n <= 0 || n >= len(keys) {
		return sorted, nil
	}
	cut := keys[len(keys)-n]
	for i, r := range sorted {
		if !r.EventKey().Before(cut) {
			return sorted[:i], sorted[i:]
		}
	}
	return sorted, nil
}

func hasBothClasses(rows []*models.TrainingRow) bool {
	var won, lost bool
	for _, r := range rows {
		if r.Won {
			won = true
		} else {
			lost = true
		}
		if won && lost {
			return true
		}
	}
	return false
}

func featureRows(rows []*models.TrainingRow) []*models.FeatureRow {
	out := make([]*models.FeatureRow, len(rows))
	for i, r := range rows {
		out[i] = &r.FeatureRow
	}
	return out
}

func wonLabels(rows []*models.TrainingRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if r.Won {
			out[i] = 1
		}
	}
	return out
}

func positions(rows []*models.TrainingRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.Position)
	}
	return out
}

func eventKeys(rows []*models.TrainingRow) []models.EventKey {
	out := make([]models.EventKey, len(rows))
	for i, r := range rows {
		out[i] = r.EventKey()
	}
	return out
}
