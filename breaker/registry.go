package breaker

import "sync"

// Registry indexes breakers by dependency name so every external
// dependency gets an independent circuit.
type Registry struct {
	breakersMutex sync.Mutex
	breakers      map[string]*Breaker

	config *Config
}

func NewRegistry(config *Config) *Registry {
	if config == nil {
		config = DefaultConfig()
	}

	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   config,
	}
}

// Breaker returns the named breaker, creating it with the registry's
// config on first use.
func (r *Registry) Breaker(name string) *Breaker {
	r.breakersMutex.Lock()
	defer r.breakersMutex.Unlock()

	breaker, exists := r.breakers[name]
	if !exists {
		breaker = NewBreaker(name, r.config)
		r.breakers[name] = breaker
	}

	return breaker
}

func (r *Registry) Stats() []*Stats {
	r.breakersMutex.Lock()
	defer r.breakersMutex.Unlock()

	stats := make([]*Stats, 0, len(r.breakers))
	for _, breaker := range r.breakers {
		stats = append(stats, breaker.Stats())
	}

	return stats
}
