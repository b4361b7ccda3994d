package ml

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/f1-winner/internal/models"
)

// AlgorithmLogistic names the logistic regression classifier
const AlgorithmLogistic = "logistic_regression"

// Artifact is everything needed to reproduce predictions of one trained model
type Artifact struct {
	Name         string               `json:"name"`
	Algorithm    string               `json:"algorithm"`
	FeatureNames []string             `json:"feature_names"`
	Imputer      MedianImputer        `json:"imputer"`
	Scaler       Standardizer         `json:"scaler"`
	Classifier   *LogisticRegression  `json:"classifier"`
	Regressor    *LinearRegressor     `json:"regressor,omitempty"`
	Metadata     models.ModelMetadata `json:"metadata"`
}

// ArtifactStore persists artifacts and tracks the current one per model name
type ArtifactStore interface {
	// Put stores the artifact and makes it current for its name. It returns the content digest.
	Put(ctx context.Context, a *Artifact) (string, error)
	// Current returns the artifact the name points at, or ErrArtifactNotFound
	Current(ctx context.Context, name string) (*Artifact, error)
}

// FileArtifactStore keeps content-addressed blobs under dir/blobs and one
// pointer file per model name under dir/current.
type FileArtifactStore struct {
	dir string
}

// NewFileArtifactStore creates the store directories if needed
func NewFileArtifactStore(dir string) (*FileArtifactStore, error) {
	for _, sub := range []string{"blobs", "current"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
	}
	return &FileArtifactStore{dir: dir}, nil
}

// Put writes the blob durably before swapping the pointer, so readers never
// see a pointer to a partial blob.
func (s *FileArtifactStore) Put(_ context.Context, a *Artifact) (string, error) {
	if err := checkName(a.Name); err != nil {
		return "", err
	}
	a.Metadata.Digest = ""
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	blob := s.blobPath(digest)
	if _, err := os.Stat(blob); errors.Is(err, fs.ErrNotExist) {
		if err := writeDurable(blob, data); err != nil {
			return "", fmt.Errorf("failed to write artifact blob: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to stat artifact blob: %w", err)
	}

	if err := writeDurable(s.pointerPath(a.Name), []byte(digest)); err != nil {
		return "", fmt.Errorf("failed to swap artifact pointer: %w", err)
	}
	a.Metadata.Digest = digest
	return digest, nil
}

// CurrentDigest returns the digest the name points at
func (s *FileArtifactStore) CurrentDigest(_ context.Context, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(s.pointerPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read artifact pointer: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Current loads and verifies the current artifact for name
func (s *FileArtifactStore) Current(ctx context.Context, name string) (*Artifact, error) {
	digest, err := s.CurrentDigest(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.blobPath(digest))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact blob %s: %w", digest, err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != digest {
		return nil, fmt.Errorf("artifact blob %s does not match its digest", digest)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	a.Metadata.Digest = digest
	return &a, nil
}

func (s *FileArtifactStore) blobPath(digest string) string {
	return filepath.Join(s.dir, "blobs", digest+".json")
}

func (s *FileArtifactStore) pointerPath(name string) string {
	return filepath.Join(s.dir, "current", name)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid model name %q", name)
	}
	return nil
}

// writeDurable writes data to a temp file in the target directory, syncs it
// and renames it into place.
func writeDurable(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
