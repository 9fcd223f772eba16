package tool

import "sync"

// BuildFunc constructs an integration's client handle from a complete configuration.
type BuildFunc[T any] func(cfg Config) (T, error)

// LazyClient builds a client handle on first use and shares it with every
// operation of the integration until Reset.
type LazyClient[T any] struct {
	gate  *Gate
	build BuildFunc[T]

	mu         sync.Mutex
	built      bool
	generation uint64
	handle     T
	builds     int
}

// NewLazyClient creates a lazy client guarded by gate.
func NewLazyClient[T any](gate *Gate, build BuildFunc[T]) *LazyClient[T] {
	return &LazyClient[T]{gate: gate, build: build}
}

// Get returns the shared handle, constructing it at most once per
// configuration snapshot. Any failure is a configuration error.
func (c *LazyClient[T]) Get() (T, error) {
	var zero T
	if err := c.gate.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	generation := c.gate.Resolver().Generation()
	if c.built && c.generation == generation {
		return c.handle, nil
	}

	c.builds++
	handle, err := c.build(c.gate.Resolver().Resolve())
	if err != nil {
		cfgErr := ConfigurationError(ToolErrorCodeConfigurationInvalid, messageOf(err))
		cfgErr.Cause = err
		return zero, cfgErr
	}
	c.handle = handle
	c.generation = generation
	c.built = true
	return handle, nil
}

// Reset drops the cached handle and the resolver's snapshot.
func (c *LazyClient[T]) Reset() {
	c.mu.Lock()
	var zero T
	c.handle = zero
	c.built = false
	c.mu.Unlock()
	c.gate.Resolver().Reset()
}

// Builds reports how many constructions have been attempted.
func (c *LazyClient[T]) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}
