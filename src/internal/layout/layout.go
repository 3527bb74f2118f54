// FILE: src/internal/layout/layout.go
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
	"github.com/lixenwraith/log"
)

// Position is where the embedded console panel docks.
type Position string

const (
	PositionRight  Position = "right"
	PositionBottom Position = "bottom"
)

// Size clamp ranges per dock position.
const (
	minRightWidth   = 280
	maxRightWidth   = 900
	minBottomHeight = 180
	maxBottomHeight = 700

	DefaultBottomHeight = 400
)

// State is the persisted panel geometry. Detached-window geometry is
// native OS window state and never passes through here.
type State struct {
	Position Position `toml:"position"`
	Size     int      `toml:"size"`
}

// DefaultState is what Load falls back to when nothing usable is on disk.
func DefaultState() State {
	return State{Position: PositionBottom, Size: DefaultBottomHeight}
}

// Clamp normalizes a state: unknown positions become the default dock,
// and size is forced into the range valid for that position.
func (s State) Clamp() State {
	switch s.Position {
	case PositionRight:
		s.Size = clamp(s.Size, minRightWidth, maxRightWidth)
	case PositionBottom:
		s.Size = clamp(s.Size, minBottomHeight, maxBottomHeight)
	default:
		return DefaultState()
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Store persists panel layout to a TOML file. Versionless,
// last-write-wins.
type Store struct {
	path   string
	logger *log.Logger
}

// NewStore creates a store writing to path.
func NewStore(path string, logger *log.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("layout store path is empty")
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the persisted layout. Missing or corrupt data falls back to
// defaults rather than failing: layout is a convenience, not state the
// application can refuse to start without.
func (s *Store) Load() State {
	if _, err := os.Stat(s.path); err != nil {
		return DefaultState()
	}

	def := DefaultState()
	cfg, err := lconfig.NewBuilder().
		WithDefaults(&def).
		WithFile(s.path).
		WithFileFormat("toml").
		Build()
	if err != nil {
		s.logger.Warn("msg", "Layout file corrupt, using defaults",
			"component", "layout",
			"path", s.path,
			"error", err)
		return DefaultState()
	}

	state := DefaultState()
	if err := cfg.Scan(&state, ""); err != nil {
		s.logger.Warn("msg", "Layout file has unexpected shape, using defaults",
			"component", "layout",
			"path", s.path,
			"error", err)
		return DefaultState()
	}
	return state.Clamp()
}

// Save clamps and writes the layout atomically.
func (s *Store) Save(state State) error {
	state = state.Clamp()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create layout directory: %w", err)
		}
	}

	cfg, err := lconfig.NewBuilder().
		WithFile(s.path).
		WithTarget(&state).
		WithFileFormat("toml").
		Build()
	if err != nil {
		// First save: the file does not exist yet.
		if !strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("failed to create layout writer: %w", err)
		}
	}
	if err := cfg.Save(s.path); err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}
	return nil
}
