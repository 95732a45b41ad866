// Package cluster maintains the set of configured CUCM clusters and their
// API clients.
package cluster

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jsteinberg1/cucm-phone-info/internal/axl"
	"github.com/jsteinberg1/cucm-phone-info/internal/config"
	"github.com/jsteinberg1/cucm-phone-info/internal/inventory"
	"github.com/jsteinberg1/cucm-phone-info/internal/risport"
)

// Cluster bundles one CUCM cluster's name with its API clients.
type Cluster struct {
	Name         string
	Metadata     inventory.MetadataAPI
	Registration inventory.RegistrationAPI
}

// Registry holds the active cluster set. Reload swaps the whole set at once
// so sync runs always see a consistent view.
type Registry struct {
	mu       sync.RWMutex
	clusters map[string]*Cluster
	order    []string
	logger   *zap.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{clusters: map[string]*Cluster{}, logger: logger}
}

// Reload rebuilds every cluster's clients from configuration. On any error
// the previous cluster set stays active.
func (r *Registry) Reload(configs []config.ClusterConfig) error {
	clusters := make(map[string]*Cluster, len(configs))
	order := make([]string, 0, len(configs))

	for _, cfg := range configs {
		if _, exists := clusters[cfg.Name]; exists {
			return fmt.Errorf("duplicate cluster name %q", cfg.Name)
		}
		metadata, err := axl.New(cfg, r.logger)
		if err != nil {
			return fmt.Errorf("cluster %s: axl client: %w", cfg.Name, err)
		}
		registration, err := risport.New(cfg, r.logger)
		if err != nil {
			return fmt.Errorf("cluster %s: risport client: %w", cfg.Name, err)
		}
		clusters[cfg.Name] = &Cluster{
			Name:         cfg.Name,
			Metadata:     metadata,
			Registration: registration,
		}
		order = append(order, cfg.Name)
	}

	r.mu.Lock()
	r.clusters = clusters
	r.order = order
	r.mu.Unlock()

	r.logger.Info("cluster registry reloaded", zap.Strings("clusters", order))
	return nil
}

// Get returns the named cluster.
func (r *Registry) Get(name string) (*Cluster, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clusters[name]
	return c, ok
}

// Names lists active clusters in configuration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
