package tui

// DragConfig maps terminal cells onto deck drag units.
type DragConfig struct {
	UnitsX float64
	UnitsY float64
}

type Option func(*Model)

func DefaultDragConfig() DragConfig {
	return DragConfig{
		UnitsX: 10,
		UnitsY: 20,
	}
}

func WithDragConfig(cfg DragConfig) Option {
	return func(m *Model) {
		if cfg.UnitsX > 0 {
			m.drag.UnitsX = cfg.UnitsX
		}
		if cfg.UnitsY > 0 {
			m.drag.UnitsY = cfg.UnitsY
		}
	}
}

func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithSwipeThreshold sets the drag distance past which the swipe badge shows that
// releasing commits the card. Hosts pass the deck's own threshold.
func WithSwipeThreshold(threshold float64) Option {
	return func(m *Model) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}
