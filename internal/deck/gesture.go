package deck

import "math"

// Gesture tuning constants, in logical units unless noted.
const (
	// SwipeThreshold is the horizontal translation a drag must exceed to commit.
	SwipeThreshold = 150.0
	// RotationDivisor converts horizontal translation into degrees of tilt.
	RotationDivisor = 20.0
	// IndicatorDeadZone is the translation below which no like/skip indicator shows.
	IndicatorDeadZone = 20.0
	// FlyOutDistance is the horizontal resting offset of a committed card.
	FlyOutDistance = 500.0
	// FlyOutRotation is the tilt, in degrees, of a committed card.
	FlyOutRotation = 20.0

	indicatorOpacitySpan = 100.0
	indicatorScaleSpan   = 400.0
	indicatorScaleMax    = 0.25
)

// Outcome is the discrete result of resolving a gesture or button press.
type Outcome string

// Outcome values.
const (
	OutcomeIgnored   Outcome = ""
	OutcomeLike      Outcome = "like"
	OutcomeSkip      Outcome = "skip"
	OutcomeCancelled Outcome = "cancelled"
)

// IsCommit reports whether the outcome moves the deck forward.
func (o Outcome) IsCommit() bool {
	return o == OutcomeLike || o == OutcomeSkip
}

// IndicatorKind names the feedback glyph shown while dragging.
type IndicatorKind string

// IndicatorKind values.
const (
	IndicatorNone IndicatorKind = "none"
	IndicatorLike IndicatorKind = "like"
	IndicatorSkip IndicatorKind = "skip"
)

// Indicator is the live like/skip feedback for the dragged card.
type Indicator struct {
	Kind    IndicatorKind
	Opacity float64
	Scale   float64
}

// TransitionKind names how a host should animate into the current drag state.
type TransitionKind string

// TransitionKind values.
const (
	// TransitionTrack follows the pointer with no easing.
	TransitionTrack TransitionKind = "track"
	// TransitionSnapBack returns a cancelled card to rest.
	TransitionSnapBack TransitionKind = "snap_back"
	// TransitionFlyOut moves a committed card off-screen.
	TransitionFlyOut TransitionKind = "fly_out"
)

// Transition describes a spring-style ease. Response is in seconds.
type Transition struct {
	Kind     TransitionKind
	Response float64
	Damping  float64
}

var (
	trackTransition    = Transition{Kind: TransitionTrack}
	snapBackTransition = Transition{Kind: TransitionSnapBack, Response: 0.4, Damping: 0.6}
	flyOutTransition   = Transition{Kind: TransitionFlyOut, Response: 0.5, Damping: 0.6}
)

// DragState is the presentation-facing state of the interactive card.
type DragState struct {
	Active     bool
	OffsetX    float64
	OffsetY    float64
	Rotation   float64
	Indicator  Indicator
	Transition Transition
}

// Rotation returns the tilt in degrees for a horizontal translation.
func Rotation(dx float64) float64 {
	return dx / RotationDivisor
}

// DeriveIndicator returns the like/skip feedback for a horizontal translation.
func DeriveIndicator(dx float64) Indicator {
	mag := math.Abs(dx)
	if mag <= IndicatorDeadZone {
		return Indicator{Kind: IndicatorNone, Scale: 1}
	}
	ind := Indicator{
		Kind:    IndicatorLike,
		Opacity: math.Min(mag/indicatorOpacitySpan, 1),
		Scale:   1 + math.Min(mag/indicatorScaleSpan, indicatorScaleMax),
	}
	if dx < 0 {
		ind.Kind = IndicatorSkip
	}
	return ind
}

// Resolve turns the final horizontal translation into an outcome.
// Vertical translation never participates in the decision. NaN input is ignored.
func Resolve(dx, threshold float64) Outcome {
	if math.IsNaN(dx) {
		return OutcomeIgnored
	}
	if threshold <= 0 {
		threshold = SwipeThreshold
	}
	if math.Abs(dx) <= threshold {
		return OutcomeCancelled
	}
	if dx > 0 {
		return OutcomeLike
	}
	return OutcomeSkip
}

// trackingState is the drag state while the pointer is down.
func trackingState(dx, dy float64) DragState {
	return DragState{
		Active:     true,
		OffsetX:    dx,
		OffsetY:    dy,
		Rotation:   Rotation(dx),
		Indicator:  DeriveIndicator(dx),
		Transition: trackTransition,
	}
}

// flyOutState is the resting drag state of a committed card. dy is preserved.
func flyOutState(outcome Outcome, dy float64) DragState {
	sign := 1.0
	if outcome == OutcomeSkip {
		sign = -1.0
	}
	dx := sign * FlyOutDistance
	return DragState{
		OffsetX:    dx,
		OffsetY:    dy,
		Rotation:   sign * FlyOutRotation,
		Indicator:  DeriveIndicator(dx),
		Transition: flyOutTransition,
	}
}

// validTranslation reports whether dx and dy are usable drag samples.
func validTranslation(dx, dy float64) bool {
	return !math.IsNaN(dx) && !math.IsNaN(dy)
}

// snapBackState is the resting drag state of a cancelled card.
func snapBackState() DragState {
	return DragState{
		Indicator:  Indicator{Kind: IndicatorNone, Scale: 1},
		Transition: snapBackTransition,
	}
}
