package storage

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Health is the last observed state of a storage backend
type Health struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// HealthManager keeps backend health status in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]Health
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]Health),
	}
}

// UpdateHealth records the health status of a backend
func (hm *HealthManager) UpdateHealth(backend string, h Health) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.health[backend] = h
}

// GetHealth retrieves the health status of a backend
func (hm *HealthManager) GetHealth(backend string) (Health, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	h, ok := hm.health[backend]
	return h, ok
}

// GetAllHealth returns a copy of every recorded status
func (hm *HealthManager) GetAllHealth() map[string]Health {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	result := make(map[string]Health, len(hm.health))
	for k, v := range hm.health {
		result[k] = v
	}
	return result
}

// IsHealthy reports whether the backend's last check passed within maxAge
func (hm *HealthManager) IsHealthy(backend string, maxAge time.Duration) bool {
	h, ok := hm.GetHealth(backend)
	if !ok {
		return false
	}
	if time.Since(h.LastCheck) > maxAge {
		return false
	}
	return h.Status == StatusHealthy
}

// CheckHealth pings the store once
func CheckHealth(ctx context.Context, s Store) Health {
	h := Health{
		LastCheck: time.Now(),
		Status:    StatusHealthy,
		Message:   "store reachable",
	}
	if err := s.Ping(ctx); err != nil {
		h.Status = StatusUnhealthy
		h.Message = "ping failed"
		h.Error = err.Error()
	}
	return h
}

// StartHealthMonitor checks the store immediately and then every interval
// until ctx is cancelled, recording each result in hm.
func StartHealthMonitor(ctx context.Context, wg *sync.WaitGroup, backend string, s Store, hm *HealthManager, interval time.Duration, logger *zap.SugaredLogger) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		updateHealth := func() {
			h := CheckHealth(ctx, s)
			hm.UpdateHealth(backend, h)
			if h.Status != StatusHealthy {
				logger.Warnf("%s storage unhealthy: %s", backend, h.Error)
			} else {
				logger.Debugf("updated %s health status: %s", backend, h.Status)
			}
		}

		updateHealth()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				updateHealth()
			case <-ctx.Done():
				logger.Infof("stopping %s health monitor", backend)
				return
			}
		}
	}()
}
