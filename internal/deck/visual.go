package deck

// Stack layout constants shared by every host.
const (
	// DefaultMaxVisible is how many cards are mounted at once, top card included.
	DefaultMaxVisible = 3
	// StackOffset nudges each card behind the top one down by this many logical units.
	StackOffset = 10.0
	// StackScale is the shared scale of every non-top visible card.
	StackScale = 0.95
	// StackOpacity is the shared opacity of every non-top visible card.
	StackOpacity = 0.5
)

// Visual holds the render hints for one card in the stack.
type Visual struct {
	Visible bool
	OffsetY float64
	Scale   float64
	Opacity float64
	ZOrder  int
}

// DeriveVisual maps a card position relative to the cursor into render hints.
// Cards outside the visible window get the zero Visual and should not be mounted.
func DeriveVisual(index, cursor, maxVisible int) Visual {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	if index < cursor || index >= cursor+maxVisible {
		return Visual{}
	}
	depth := index - cursor
	v := Visual{
		Visible: true,
		OffsetY: float64(depth) * StackOffset,
		Scale:   1.0,
		Opacity: 1.0,
		ZOrder:  cursor + maxVisible - index,
	}
	if depth > 0 {
		v.Scale = StackScale
		v.Opacity = StackOpacity
	}
	return v
}
