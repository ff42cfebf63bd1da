package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joseph-ayodele/docclass/constants"
	"github.com/joseph-ayodele/docclass/internal/common"
)

const (
	VectorizerArtifact = "vectorizer.json"
	ClassifierArtifact = "classifier.json"

	formatVersion = 1
)

// ArtifactStore persists named blobs. Put must be atomic per artifact;
// Get must return an error wrapping common.ErrNotFound for a missing artifact.
type ArtifactStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type vectorizerArtifact struct {
	FormatVersion int       `json:"format_version"`
	Fingerprint   string    `json:"fingerprint"`
	TrainedAt     time.Time `json:"trained_at"`
	Terms         []string  `json:"terms"`
}

type classifierArtifact struct {
	FormatVersion  int               `json:"format_version"`
	Fingerprint    string            `json:"fingerprint"`
	TrainedAt      time.Time         `json:"trained_at"`
	Labels         []constants.Label `json:"labels"`
	ClassCounts    []int             `json:"class_counts"`
	Alpha          float64           `json:"alpha"`
	LogPriors      []float64         `json:"log_priors"`
	LogLikelihoods [][]float64       `json:"log_likelihoods"`
}

// MarshalArtifacts encodes the two artifacts. encoding/json writes the shortest
// float64 representation that parses back to the same bits.
func MarshalArtifacts(b *Bundle) (vectorizer, classifier []byte, err error) {
	if b == nil || b.Vectorizer == nil || b.Model == nil {
		return nil, nil, fmt.Errorf("marshal model: %w", common.ErrModelNotLoaded)
	}
	fp := b.Vectorizer.Fingerprint()
	vectorizer, err = json.Marshal(vectorizerArtifact{
		FormatVersion: formatVersion,
		Fingerprint:   fp,
		TrainedAt:     b.TrainedAt,
		Terms:         b.Vectorizer.terms,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal vectorizer: %w", err)
	}
	classifier, err = json.Marshal(classifierArtifact{
		FormatVersion:  formatVersion,
		Fingerprint:    fp,
		TrainedAt:      b.TrainedAt,
		Labels:         b.Model.Labels,
		ClassCounts:    b.Model.ClassCounts,
		Alpha:          b.Model.Alpha,
		LogPriors:      b.Model.LogPriors,
		LogLikelihoods: b.Model.LogLikelihoods,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal classifier: %w", err)
	}
	return vectorizer, classifier, nil
}

// UnmarshalArtifacts rebuilds a Bundle and refuses anything whose vocabulary
// is empty, does not match its fingerprint, or does not match the likelihood table.
func UnmarshalArtifacts(vectorizer, classifier []byte) (*Bundle, error) {
	var va vectorizerArtifact
	if err := json.Unmarshal(vectorizer, &va); err != nil {
		return nil, common.VocabularyMismatchError("decode vectorizer artifact", err)
	}
	var ca classifierArtifact
	if err := json.Unmarshal(classifier, &ca); err != nil {
		return nil, fmt.Errorf("decode classifier artifact: %w", err)
	}
	if va.FormatVersion != formatVersion || ca.FormatVersion != formatVersion {
		return nil, common.VocabularyMismatchError(
			fmt.Sprintf("unsupported artifact format %d/%d", va.FormatVersion, ca.FormatVersion), nil)
	}
	if len(va.Terms) == 0 {
		return nil, common.VocabularyMismatchError("persisted vocabulary is empty", nil)
	}
	fp := fingerprint(va.Terms)
	if va.Fingerprint != fp {
		return nil, common.VocabularyMismatchError("vectorizer fingerprint does not match its terms", nil)
	}
	if ca.Fingerprint != fp {
		return nil, common.VocabularyMismatchError("classifier was trained against a different vocabulary", nil)
	}

	n := len(ca.Labels)
	if n == 0 || len(ca.LogPriors) != n || len(ca.LogLikelihoods) != n || len(ca.ClassCounts) != n {
		return nil, fmt.Errorf("classifier artifact has inconsistent class tables (%d labels)", n)
	}
	for c, row := range ca.LogLikelihoods {
		if len(row) != len(va.Terms) {
			return nil, common.VocabularyMismatchError(
				fmt.Sprintf("likelihood row %d has %d columns for %d terms", c, len(row), len(va.Terms)), nil)
		}
	}

	vec, err := newVectorizer(va.Terms)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Vectorizer: vec,
		Model: &Model{
			Labels:         ca.Labels,
			ClassCounts:    ca.ClassCounts,
			Alpha:          ca.Alpha,
			LogPriors:      ca.LogPriors,
			LogLikelihoods: ca.LogLikelihoods,
		},
		TrainedAt: ca.TrainedAt,
	}, nil
}

// SaveBundle writes the vectorizer first, then the classifier. A crash between
// the two leaves mismatched fingerprints, which LoadBundle rejects.
func SaveBundle(ctx context.Context, store ArtifactStore, b *Bundle) error {
	vec, cls, err := MarshalArtifacts(b)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, VectorizerArtifact, vec); err != nil {
		return fmt.Errorf("save %s: %w", VectorizerArtifact, err)
	}
	if err := store.Put(ctx, ClassifierArtifact, cls); err != nil {
		return fmt.Errorf("save %s: %w", ClassifierArtifact, err)
	}
	return nil
}

// LoadBundle reads both artifacts. A missing artifact is a vocabulary mismatch:
// the model must not serve without the vocabulary it was trained on.
func LoadBundle(ctx context.Context, store ArtifactStore) (*Bundle, error) {
	vec, err := store.Get(ctx, VectorizerArtifact)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.VocabularyMismatchError("vectorizer artifact is missing", err)
		}
		return nil, fmt.Errorf("load %s: %w", VectorizerArtifact, err)
	}
	cls, err := store.Get(ctx, ClassifierArtifact)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.VocabularyMismatchError("classifier artifact is missing", err)
		}
		return nil, fmt.Errorf("load %s: %w", ClassifierArtifact, err)
	}
	return UnmarshalArtifacts(vec, cls)
}
