// Package bootstrap mounts route modules whose activation lives in the
// identity store rather than in code.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"cortex-server/internal/model"
	"github.com/gin-gonic/gin"
)

// Mount wires a module's routes onto the group at its endpoint.
type Mount func(group *gin.RouterGroup)

type ModuleLister interface {
	ListActiveModules(ctx context.Context) ([]model.Module, error)
}

type Registry struct {
	mu      sync.RWMutex
	modules map[string]Mount
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{modules: make(map[string]Mount), logger: logger}
}

func (r *Registry) Register(name string, m Mount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = m
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load mounts every active module the registry knows. Unknown names and
// duplicate endpoints are logged and skipped; it returns the names it
// mounted.
func (r *Registry) Load(ctx context.Context, lister ModuleLister, router gin.IRouter) ([]string, error) {
	active, err := lister.ListActiveModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var mounted []string
	seen := make(map[string]string)
	for _, mod := range active {
		mount, ok := r.modules[mod.Name]
		if !ok {
			r.logger.Warn("skipping unknown module", "module", mod.Name, "endpoint", mod.Endpoint)
			continue
		}
		endpoint := normalizeEndpoint(mod.Endpoint)
		if prev, dup := seen[endpoint]; dup {
			r.logger.Warn("skipping module with duplicate endpoint", "module", mod.Name, "endpoint", endpoint, "mounted", prev)
			continue
		}
		seen[endpoint] = mod.Name

		mount(router.Group(endpoint))
		mounted = append(mounted, mod.Name)
		r.logger.Info("module mounted", "module", mod.Name, "endpoint", endpoint)
	}
	return mounted, nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	if len(endpoint) > 1 {
		endpoint = strings.TrimRight(endpoint, "/")
	}
	return endpoint
}
