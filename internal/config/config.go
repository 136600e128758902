package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Deck     DeckConfig     `toml:"deck"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Server   ServerConfig   `toml:"server"`
	UI       UIConfig       `toml:"ui"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"` // debug | info | warn | error
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DeckConfig tunes the swipe deck.
type DeckConfig struct {
	SettleDelayMS  int     `toml:"settle_delay_ms"`
	MaxVisible     int     `toml:"max_visible"`
	SwipeThreshold float64 `toml:"swipe_threshold"`
}

type CatalogConfig struct {
	SeedOnEmpty bool `toml:"seed_on_empty"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// UIConfig maps terminal cells to deck drag units and carries key overrides.
type UIConfig struct {
	DragUnitsX float64     `toml:"drag_units_x"`
	DragUnitsY float64     `toml:"drag_units_y"`
	Keys       KeyBindings `toml:"keys"`
}

// KeyBindings overrides single deck actions. Blank values keep the default key.
type KeyBindings struct {
	Like   string `toml:"like"`
	Skip   string `toml:"skip"`
	Saved  string `toml:"saved"`
	Copy   string `toml:"copy"`
	Reload string `toml:"reload"`
}

// Bounds enforced by Validate.
const (
	MaxSettleDelayMS = 5000
	MaxVisibleCards  = 10
)

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".crave/log",
			},
		},
		Deck: DeckConfig{
			SettleDelayMS:  300,
			MaxVisible:     3,
			SwipeThreshold: 150,
		},
		Catalog: CatalogConfig{
			SeedOnEmpty: true,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		UI: UIConfig{
			DragUnitsX: 10,
			DragUnitsY: 20,
			Keys: KeyBindings{
				Like:   "l",
				Skip:   "h",
				Saved:  "s",
				Copy:   "y",
				Reload: "r",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when dev_file is enabled")
	}

	if c.Deck.SettleDelayMS < 0 || c.Deck.SettleDelayMS > MaxSettleDelayMS {
		return fmt.Errorf("deck.settle_delay_ms must be between 0 and %d", MaxSettleDelayMS)
	}
	if c.Deck.MaxVisible < 1 || c.Deck.MaxVisible > MaxVisibleCards {
		return fmt.Errorf("deck.max_visible must be between 1 and %d", MaxVisibleCards)
	}
	if c.Deck.SwipeThreshold <= 0 {
		return errors.New("deck.swipe_threshold must be > 0")
	}

	if bind := strings.TrimSpace(c.Server.HTTPBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("invalid server.http_bind %q: %w", bind, err)
		}
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}

	if c.UI.DragUnitsX <= 0 || c.UI.DragUnitsY <= 0 {
		return errors.New("ui.drag_units_x and ui.drag_units_y must be > 0")
	}
	seen := map[string]string{}
	for name, binding := range map[string]string{
		"like":   c.UI.Keys.Like,
		"skip":   c.UI.Keys.Skip,
		"saved":  c.UI.Keys.Saved,
		"copy":   c.UI.Keys.Copy,
		"reload": c.UI.Keys.Reload,
	} {
		binding = strings.TrimSpace(binding)
		if binding == "" {
			continue
		}
		if other, ok := seen[binding]; ok {
			return fmt.Errorf("ui.keys.%s and ui.keys.%s both use %q", name, other, binding)
		}
		seen[binding] = name
	}
	return nil
}

// SettleDelay returns the deck settle delay as a duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Deck.SettleDelayMS) * time.Millisecond
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode toml: %w", err)
	}
	return out, nil
}

// WriteDefault writes cfg to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	content, err := cfg.Encode()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
