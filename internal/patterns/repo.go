package patterns

import (
	"context"

	"github.com/miradorstack/mirador-gate/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, tenantID string, patterns []models.BlockingPattern) error

// StorePatterns implements Store.
func (f StoreFunc) StorePatterns(ctx context.Context, tenantID string, patterns []models.BlockingPattern) error {
	return f(ctx, tenantID, patterns)
}
