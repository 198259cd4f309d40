package policy

import (
	"log/slog"
	"sync/atomic"

	"github.com/miradorstack/mirador-gate/internal/metrics"
	"github.com/miradorstack/mirador-gate/internal/models"
)

// Store holds the active policy. Readers get a consistent snapshot while
// reloads swap the whole document at once.
type Store struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[models.Policy]
}

// NewStore loads the policy at path. An empty path starts with an empty policy,
// under which every decision resolves to review.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	s.current.Store(&models.Policy{})
	if path == "" {
		logger.Warn("no policy path configured; all pipelines resolve to review")
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active policy snapshot.
func (s *Store) Current() models.Policy {
	return *s.current.Load()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Replace installs a policy directly.
func (s *Store) Replace(policy models.Policy) {
	s.current.Store(&policy)
}

// Reload re-reads the backing file. On failure the previous policy stays active.
func (s *Store) Reload() error {
	policy, err := LoadFile(s.path)
	if err != nil {
		metrics.ObservePolicyReload(metrics.OutcomeError)
		return err
	}
	for _, issue := range Validate(policy) {
		s.logger.Warn("policy issue", slog.String("path", s.path), slog.String("issue", issue.String()))
	}
	s.Replace(policy)
	metrics.ObservePolicyReload(metrics.OutcomeSuccess)
	s.logger.Info("policy loaded", slog.String("path", s.path), slog.String("name", policy.Name), slog.Int("rules", len(policy.Rules)))
	return nil
}
