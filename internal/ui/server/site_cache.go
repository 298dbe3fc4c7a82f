package server

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/metrics"
	"github.com/Its-donkey/quinfall-site/internal/ui/model"
)

const (
	cacheKeyMaintenance = "maintenance"
	cacheKeyPlayerCount = "player_count"

	fallbackMaintenanceTTL = 30 * time.Second
	fallbackPlayerCountTTL = 60 * time.Second
)

// siteCache keeps short-lived copies of backend lookups made on every page view.
type siteCache struct {
	backend        Backend
	store          *gocache.Cache
	maintenanceTTL time.Duration
	playerCountTTL time.Duration
	metrics        *metrics.Collector
	logger         logrus.FieldLogger
}

// newSiteCache builds the cache. A non-positive TTL falls back to the default because
// go-cache treats zero as "never expire".
func newSiteCache(b Backend, maintenanceTTL, playerCountTTL time.Duration, m *metrics.Collector, logger logrus.FieldLogger) *siteCache {
	if maintenanceTTL <= 0 {
		maintenanceTTL = fallbackMaintenanceTTL
	}
	if playerCountTTL <= 0 {
		playerCountTTL = fallbackPlayerCountTTL
	}
	return &siteCache{
		backend:        b,
		store:          gocache.New(maintenanceTTL, 5*time.Minute),
		maintenanceTTL: maintenanceTTL,
		playerCountTTL: playerCountTTL,
		metrics:        m,
		logger:         logger,
	}
}

func (c *siteCache) observe(key string, hit bool) {
	if c.metrics != nil {
		c.metrics.ObserveCache(key, hit)
	}
}

// Maintenance returns the maintenance switch. Lookup failures count as "not in
// maintenance" and are cached like a normal answer so a down backend is not hammered.
func (c *siteCache) Maintenance(ctx context.Context) model.Maintenance {
	if v, ok := c.store.Get(cacheKeyMaintenance); ok {
		c.observe(cacheKeyMaintenance, true)
		return v.(model.Maintenance)
	}
	c.observe(cacheKeyMaintenance, false)

	status, err := c.backend.Maintenance(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("maintenance lookup failed; serving site")
		status = model.Maintenance{}
	}
	c.store.Set(cacheKeyMaintenance, status, c.maintenanceTTL)
	if c.metrics != nil {
		c.metrics.SetMaintenance(status.IsActive)
	}
	return status
}

// PlayerCount returns the live Steam player count. Failures are not cached.
func (c *siteCache) PlayerCount(ctx context.Context) (int, bool) {
	if v, ok := c.store.Get(cacheKeyPlayerCount); ok {
		c.observe(cacheKeyPlayerCount, true)
		return v.(int), true
	}
	c.observe(cacheKeyPlayerCount, false)

	count, err := c.backend.PlayerCount(ctx)
	if err != nil {
		c.logger.WithError(err).Debug("player count unavailable")
		return 0, false
	}
	c.store.Set(cacheKeyPlayerCount, count, c.playerCountTTL)
	return count, true
}

// Flush drops every cached entry.
func (c *siteCache) Flush() {
	c.store.Flush()
}
