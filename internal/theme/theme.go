// ABOUTME: Theme preference container (light or dark)
// ABOUTME: Stored unscoped under the theme slot as a device-wide preference

package theme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/storefront/internal/scoped"
	"github.com/2389/storefront/internal/store"
)

// Mode is a display theme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// modes is the toggle cycle.
var modes = []Mode{Light, Dark}

// Parse validates s as a Mode.
func Parse(s string) (Mode, error) {
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// Preference holds the active theme.
type Preference struct {
	acc      *scoped.Accessor
	fallback Mode
	logger   *slog.Logger

	mu   sync.RWMutex
	mode Mode
}

// New creates a preference that uses fallback until one is loaded or set.
func New(acc *scoped.Accessor, fallback Mode, logger *slog.Logger) *Preference {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := Parse(string(fallback)); err != nil {
		fallback = Light
	}
	return &Preference{
		acc:      acc,
		fallback: fallback,
		logger:   logger.With("component", "theme"),
		mode:     fallback,
	}
}

// Load reads the persisted theme. Missing or unknown values use the fallback.
func (p *Preference) Load(ctx context.Context) Mode {
	raw := p.acc.ReadString(ctx, store.SlotTheme)
	mode, err := Parse(raw)
	if err != nil {
		if raw != "" {
			p.logger.Warn("ignoring persisted theme", "value", raw)
		}
		mode = p.fallback
	}

	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	return mode
}

// Mode returns the active theme.
func (p *Preference) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Set activates mode and persists it.
func (p *Preference) Set(ctx context.Context, mode Mode) error {
	if _, err := Parse(string(mode)); err != nil {
		return err
	}
	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()

	p.acc.WriteString(ctx, store.SlotTheme, string(mode))
	return nil
}

// Toggle switches to the next theme and returns it.
func (p *Preference) Toggle(ctx context.Context) Mode {
	p.mu.Lock()
	next := modes[0]
	for i, m := range modes {
		if m == p.mode {
			next = modes[(i+1)%len(modes)]
			break
		}
	}
	p.mode = next
	p.mu.Unlock()

	p.acc.WriteString(ctx, store.SlotTheme, string(next))
	return next
}
