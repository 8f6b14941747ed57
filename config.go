package layers

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config collects the tunables of the compositing core. Hosts typically
// load it once at startup from a TOML file and pass the relevant sections
// to the component constructors.
type Config struct {
	Pool    PoolConfig    `toml:"pool"`
	History HistoryConfig `toml:"history"`
	Engine  EngineConfig  `toml:"engine"`
	Store   StoreConfig   `toml:"store"`
}

// PoolConfig configures the SurfacePool.
type PoolConfig struct {
	// BucketCap limits the free surfaces kept per size bucket.
	BucketCap int `toml:"bucket_cap"`
	// BudgetBytes is the estimated memory budget; when the pool's
	// aggregate usage exceeds OptimizeThreshold of it, free lists are
	// proactively halved.
	BudgetBytes int64 `toml:"budget_bytes"`
	// OptimizeThreshold is the budget fraction (0..1] that triggers
	// memory optimization.
	OptimizeThreshold float64 `toml:"optimize_threshold"`
	// SchedulerInterval is how often deferred cleanup runs.
	SchedulerInterval time.Duration `toml:"scheduler_interval"`
}

// HistoryConfig configures the HistoryManager.
type HistoryConfig struct {
	// Capacity is the maximum number of retained snapshots.
	Capacity int `toml:"capacity"`
}

// EngineConfig configures the CompositionEngine.
type EngineConfig struct {
	// Width and Height are the dimensions of produced output surfaces.
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// ThrottleInterval is the minimum spacing between two full
	// composition passes. Requests inside the window are coalesced.
	ThrottleInterval time.Duration `toml:"throttle_interval"`
}

// StoreConfig configures the LayerStore.
type StoreConfig struct {
	// MaxLayers is the global layer-count ceiling; CreateLayer becomes a
	// no-op beyond it.
	MaxLayers int `toml:"max_layers"`
	// TrashCapacity bounds the deleted-layer list kept for restore.
	TrashCapacity int `toml:"trash_capacity"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Pool: PoolConfig{
			BucketCap:         8,
			BudgetBytes:       256 << 20,
			OptimizeThreshold: 0.8,
			SchedulerInterval: 30 * time.Second,
		},
		History: HistoryConfig{Capacity: 50},
		Engine: EngineConfig{
			Width:            1024,
			Height:           1024,
			ThrottleInterval: 16 * time.Millisecond,
		},
		Store: StoreConfig{
			MaxLayers:     500,
			TrashCapacity: 20,
		},
	}
}

// ParseConfig parses TOML data over the defaults, so partial files only
// override the keys they mention.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("layers: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a TOML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("layers: load config: %w", err)
	}
	return ParseConfig(data)
}

func (c Config) validate() error {
	if c.Pool.BucketCap < 0 {
		return fmt.Errorf("layers: pool.bucket_cap must be >= 0, got %d", c.Pool.BucketCap)
	}
	if c.Pool.OptimizeThreshold <= 0 || c.Pool.OptimizeThreshold > 1 {
		return fmt.Errorf("layers: pool.optimize_threshold must be in (0, 1], got %v", c.Pool.OptimizeThreshold)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("layers: history.capacity must be >= 1, got %d", c.History.Capacity)
	}
	if c.Engine.Width <= 0 || c.Engine.Height <= 0 {
		return fmt.Errorf("layers: engine dimensions must be positive, got %dx%d", c.Engine.Width, c.Engine.Height)
	}
	if c.Store.MaxLayers < 1 {
		return fmt.Errorf("layers: store.max_layers must be >= 1, got %d", c.Store.MaxLayers)
	}
	return nil
}
