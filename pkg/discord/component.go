package discord

import (
	"strings"
	"sync"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
)

// ComponentFunc handles a button, select menu or modal submit
type ComponentFunc func(ctx *CommandContext) error

type componentRoute struct {
	id     string
	prefix bool
	run    ComponentFunc
}

// ComponentRouter dispatches component interactions by custom id.
// Exact ids win over prefixes, and longer prefixes win over shorter ones.
type ComponentRouter struct {
	mu     sync.RWMutex
	routes []componentRoute
}

// NewComponentRouter creates an empty router
func NewComponentRouter() *ComponentRouter {
	return &ComponentRouter{}
}

// Handle routes the exact custom id to fn
func (r *ComponentRouter) Handle(customID string, fn ComponentFunc) {
	r.add(componentRoute{id: customID, run: fn})
}

// HandlePrefix routes every custom id starting with prefix to fn
func (r *ComponentRouter) HandlePrefix(prefix string, fn ComponentFunc) {
	r.add(componentRoute{id: prefix, prefix: true, run: fn})
}

func (r *ComponentRouter) add(route componentRoute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
	logger.Debug("Componente registrado: "+route.id, "ComponentRouter")
}

// Match finds the handler for customID
func (r *ComponentRouter) Match(customID string) (ComponentFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *componentRoute
	for i := range r.routes {
		route := &r.routes[i]
		if !route.prefix {
			if route.id == customID {
				return route.run, true
			}
			continue
		}
		if strings.HasPrefix(customID, route.id) && (best == nil || len(route.id) > len(best.id)) {
			best = route
		}
	}
	if best == nil {
		return nil, false
	}
	return best.run, true
}
