package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-gate/internal/cache"
	"github.com/miradorstack/mirador-gate/internal/models"
)

// RegistryClient talks to the scheduler/registry that owns pipeline units and
// to the alerting service that produces reports for them.
type RegistryClient struct {
	baseURL     string
	unitsPath   string
	reportsPath string
	httpClient  *http.Client
	cache       cache.Provider
	unitsTTL    time.Duration
	logger      *slog.Logger
}

// NewRegistryClient constructs a client targeting the configured registry instance.
func NewRegistryClient(baseURL, unitsPath, reportsPath string, timeout time.Duration, cacheProvider cache.Provider, unitsTTL time.Duration, logger *slog.Logger) *RegistryClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		unitsPath:   unitsPath,
		reportsPath: reportsPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    cacheProvider,
		unitsTTL: unitsTTL,
		logger:   logger,
	}
}

// FetchUnits returns the ordered unit list for a pipeline. Results are cached
// for the configured TTL since unit readiness changes slowly.
func (c *RegistryClient) FetchUnits(ctx context.Context, tenantID, pipelineID string) ([]models.Unit, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	key := unitsCacheKey(tenantID, pipelineID)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var units []models.Unit
		if jsonErr := json.Unmarshal(cached, &units); jsonErr == nil {
			return units, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("unit cache lookup failed", slog.Any("error", err))
	}

	payload := map[string]any{
		"tenant_id":   tenantID,
		"pipeline_id": pipelineID,
	}

	var response struct {
		Units []map[string]any `json:"units"`
	}

	if err := c.postJSON(ctx, c.resolvePath(c.unitsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("registry units request failed: %w", err)
	}

	units := make([]models.Unit, 0, len(response.Units))
	for _, fields := range response.Units {
		units = append(units, models.UnitFromFields(fields))
	}

	if c.unitsTTL > 0 {
		if data, err := json.Marshal(units); err == nil {
			if err := c.cache.Set(ctx, key, data, c.unitsTTL); err != nil {
				c.logger.Warn("unit cache store failed", slog.Any("error", err))
			}
		}
	}
	return units, nil
}

// FetchReport returns the latest raw alert report for a pipeline.
func (c *RegistryClient) FetchReport(ctx context.Context, tenantID, pipelineID string) (models.Report, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"tenant_id":   tenantID,
		"pipeline_id": pipelineID,
	}

	var response struct {
		Report models.Report `json:"report"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.reportsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("registry report request failed: %w", err)
	}
	if response.Report == nil {
		return models.Report{}, nil
	}
	return response.Report, nil
}

func (c *RegistryClient) ready() error {
	if c == nil {
		return fmt.Errorf("registry client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("registry base URL not configured")
	}
	return nil
}

func (c *RegistryClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *RegistryClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("registry returned %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func unitsCacheKey(tenantID, pipelineID string) string {
	return fmt.Sprintf("mirador-gate:units:%s:%s", tenantID, pipelineID)
}
