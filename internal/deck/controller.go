// Package deck implements the swipe deck engine: the candidate queue, the cursor,
// the stacked-card visual derivation, and the drag-to-commit decision protocol.
package deck

import (
	"slices"
	"sync"
	"time"
)

// DefaultSettleDelay matches the off-screen animation of a committed card.
const DefaultSettleDelay = 300 * time.Millisecond

// Logger is the logging surface the controller writes to.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// nopLogger drops every event.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}

// Card is one mounted card in a snapshot.
type Card[T any] struct {
	Index       int
	Item        T
	Visual      Visual
	Interactive bool
}

// Snapshot is a read-only copy of the deck state for rendering.
type Snapshot[T any] struct {
	// Seq increases with every state change. Snapshots with a higher Seq are newer.
	Seq       uint64
	Session   uint64
	Cursor    int
	Len       int
	Exhausted bool
	// Settling is true between a commit and the cursor advance.
	Settling bool
	Outcome  Outcome
	Drag     DragState
	// Cards holds the visible window, top card first.
	Cards []Card[T]
}

// Top returns the card at the cursor.
func (s Snapshot[T]) Top() (Card[T], bool) {
	if len(s.Cards) == 0 {
		return Card[T]{}, false
	}
	return s.Cards[0], true
}

// Option configures a Controller.
type Option func(*settings)

// settings holds the type-independent controller configuration.
type settings struct {
	scheduler   Scheduler
	settleDelay time.Duration
	threshold   float64
	maxVisible  int
	log         Logger
}

// WithScheduler replaces the wall-clock scheduler used for settle tasks.
func WithScheduler(s Scheduler) Option {
	return func(cfg *settings) {
		if s != nil {
			cfg.scheduler = s
		}
	}
}

// WithSettleDelay sets the delay between a commit and the cursor advance.
func WithSettleDelay(d time.Duration) Option {
	return func(cfg *settings) {
		if d >= 0 {
			cfg.settleDelay = d
		}
	}
}

// WithSwipeThreshold sets the horizontal commit threshold.
func WithSwipeThreshold(threshold float64) Option {
	return func(cfg *settings) {
		if threshold > 0 {
			cfg.threshold = threshold
		}
	}
}

// WithMaxVisible sets how many cards are mounted at once.
func WithMaxVisible(n int) Option {
	return func(cfg *settings) {
		if n > 0 {
			cfg.maxVisible = n
		}
	}
}

// WithLogger routes controller events to l.
func WithLogger(l Logger) Option {
	return func(cfg *settings) {
		if l != nil {
			cfg.log = l
		}
	}
}

// pendingCommit is a scheduled settle keyed to the session and card it targets.
type pendingCommit struct {
	session  uint64
	index    int
	outcome  Outcome
	notified bool
	timer    Timer
}

// gestureBinding ties a drag stream to the card that was on top when it began.
type gestureBinding struct {
	session uint64
	index   int
}

// Controller owns the candidate queue and cursor of one deck.
// It is safe for concurrent use; settle tasks fire on the scheduler's goroutine.
type Controller[T any] struct {
	settings
	onLike func(T)

	mu      sync.Mutex
	seq     uint64
	closed  bool
	session uint64
	queue   []T
	cursor  int
	drag    DragState
	gesture *gestureBinding
	pending *pendingCommit

	subMu     sync.Mutex
	subs      map[int]func(Snapshot[T])
	nextSubID int
}

// NewController builds an empty, exhausted deck. onLike receives every liked item.
func NewController[T any](onLike func(T), opts ...Option) *Controller[T] {
	c := &Controller[T]{
		settings: settings{
			scheduler:   realScheduler{},
			settleDelay: DefaultSettleDelay,
			threshold:   SwipeThreshold,
			maxVisible:  DefaultMaxVisible,
			log:         nopLogger{},
		},
		onLike: onLike,
		subs:   map[int]func(Snapshot[T]){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&c.settings)
		}
	}
	return c
}

// Load starts a new deck session over items. Any pending settle is discarded.
// Load after Close is ignored.
func (c *Controller[T]) Load(items []T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session++
	c.queue = slices.Clone(items)
	c.cursor = 0
	c.drag = DragState{}
	c.dropPendingLocked()
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.Debug("deck loaded", "session", snap.Session, "cards", snap.Len)
	c.publish(snap)
}

// Close cancels any pending settle and stops accepting input. A card that was
// flying out comes back to rest on top without advancing the cursor.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.dropPendingLocked()
	c.gesture = nil
	c.drag = DragState{}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// BeginGesture binds a new drag stream to the card at index.
// It reports false when that card is not the interactive top card.
func (c *Controller[T]) BeginGesture(index int) bool {
	c.mu.Lock()
	if !c.acceptsGestureLocked(index) {
		c.mu.Unlock()
		return false
	}
	c.gesture = &gestureBinding{session: c.session, index: index}
	c.drag = trackingState(0, 0)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap)
	return true
}

// UpdateGesture records the live translation of the active drag.
// Without an active drag it binds one to the top card.
func (c *Controller[T]) UpdateGesture(dx, dy float64) bool {
	if !validTranslation(dx, dy) {
		return false
	}
	c.mu.Lock()
	if !c.bindGestureLocked() {
		c.mu.Unlock()
		return false
	}
	c.drag = trackingState(dx, dy)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.publish(snap)
	return true
}

// EndGesture resolves the drag into like, skip, or cancelled.
// Stale, unbound or NaN input resolves to OutcomeIgnored and changes nothing.
func (c *Controller[T]) EndGesture(dx, dy float64) Outcome {
	if !validTranslation(dx, dy) {
		return OutcomeIgnored
	}
	c.mu.Lock()
	if !c.bindGestureLocked() {
		if c.gesture != nil && !c.gestureCurrentLocked() {
			c.gesture = nil
		}
		c.mu.Unlock()
		return OutcomeIgnored
	}
	c.gesture = nil
	outcome := Resolve(dx, c.threshold)
	if outcome == OutcomeCancelled {
		c.drag = snapBackState()
		snap := c.changedLocked()
		c.mu.Unlock()

		c.log.Debug("swipe cancelled", "index", snap.Cursor, "dx", dx)
		c.publish(snap)
		return outcome
	}
	p := c.commitLocked(outcome, dy, false)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.Debug("swipe committed", "index", p.index, "outcome", outcome, "dx", dx)
	c.publish(snap)
	c.schedule(p)
	return outcome
}

// LikeCurrent commits the top card as liked. onLike fires before it returns.
func (c *Controller[T]) LikeCurrent() Outcome {
	return c.press(OutcomeLike)
}

// SkipCurrent commits the top card as skipped.
func (c *Controller[T]) SkipCurrent() Outcome {
	return c.press(OutcomeSkip)
}

// Snapshot returns the current deck state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every state change and returns its cancel func.
// Snapshots are delivered outside the deck lock, so a settle on the timer
// goroutine can race host input; subscribers that keep state should drop any
// snapshot whose Seq is not above the last one they applied.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) func() {
	if fn == nil {
		return func() {}
	}
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// press runs the button path: same fly-out and settle as a gesture commit,
// with onLike fired up front.
func (c *Controller[T]) press(outcome Outcome) Outcome {
	c.mu.Lock()
	if c.closed || c.pending != nil || c.cursor >= len(c.queue) {
		c.mu.Unlock()
		return OutcomeIgnored
	}
	item := c.queue[c.cursor]
	p := c.commitLocked(outcome, 0, outcome == OutcomeLike)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.log.Debug("button committed", "index", p.index, "outcome", outcome)
	if outcome == OutcomeLike && c.onLike != nil {
		c.onLike(item)
	}
	c.publish(snap)
	c.schedule(p)
	return outcome
}

// commitLocked marks the top card as committed and moves it to its fly-out pose.
func (c *Controller[T]) commitLocked(outcome Outcome, dy float64, notified bool) *pendingCommit {
	p := &pendingCommit{
		session:  c.session,
		index:    c.cursor,
		outcome:  outcome,
		notified: notified,
	}
	c.pending = p
	c.gesture = nil
	c.drag = flyOutState(outcome, dy)
	return p
}

// schedule arms the settle task. It runs unlocked so synchronous schedulers work.
func (c *Controller[T]) schedule(p *pendingCommit) {
	t := c.scheduler.AfterFunc(c.settleDelay, func() { c.settle(p) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == p {
		p.timer = t
		return
	}
	if t != nil {
		t.Stop()
	}
}

// settle fires the like callback and advances past the committed card.
func (c *Controller[T]) settle(p *pendingCommit) {
	c.mu.Lock()
	if c.pending != p || p.session != c.session || p.index != c.cursor {
		c.mu.Unlock()
		c.log.Debug("stale settle discarded", "session", p.session, "index", p.index)
		return
	}
	item := c.queue[p.index]
	fire := p.outcome == OutcomeLike && !p.notified
	p.notified = true
	c.mu.Unlock()

	if fire && c.onLike != nil {
		c.onLike(item)
	}

	c.mu.Lock()
	if c.pending != p || p.session != c.session {
		c.mu.Unlock()
		c.log.Debug("settle superseded by reload", "session", p.session, "index", p.index)
		return
	}
	c.pending = nil
	c.advanceLocked()
	snap := c.changedLocked()
	c.mu.Unlock()

	if snap.Exhausted {
		c.log.Info("deck exhausted", "session", snap.Session, "cards", snap.Len)
	}
	c.publish(snap)
}

// advanceLocked moves the cursor forward by one card.
func (c *Controller[T]) advanceLocked() {
	if c.cursor < len(c.queue) {
		c.cursor++
	}
	c.drag = DragState{}
	c.gesture = nil
}

func (c *Controller[T]) dropPendingLocked() {
	if c.pending == nil {
		return
	}
	if c.pending.timer != nil {
		c.pending.timer.Stop()
	}
	c.pending = nil
}

func (c *Controller[T]) acceptsGestureLocked(index int) bool {
	return !c.closed && c.pending == nil && index == c.cursor && c.cursor < len(c.queue)
}

func (c *Controller[T]) gestureCurrentLocked() bool {
	return c.gesture != nil && c.gesture.session == c.session && c.gesture.index == c.cursor
}

// bindGestureLocked validates the active drag, or binds one to the top card.
// A drag bound to a card that is no longer on top stays bound until it ends.
func (c *Controller[T]) bindGestureLocked() bool {
	if c.gesture != nil {
		return c.gestureCurrentLocked() && c.pending == nil
	}
	if !c.acceptsGestureLocked(c.cursor) {
		return false
	}
	c.gesture = &gestureBinding{session: c.session, index: c.cursor}
	return true
}

// changedLocked records one state change and returns the snapshot to publish.
func (c *Controller[T]) changedLocked() Snapshot[T] {
	c.seq++
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	s := Snapshot[T]{
		Seq:       c.seq,
		Session:   c.session,
		Cursor:    c.cursor,
		Len:       len(c.queue),
		Exhausted: c.cursor >= len(c.queue),
		Drag:      c.drag,
	}
	if c.pending != nil {
		s.Settling = true
		s.Outcome = c.pending.outcome
	}
	end := min(c.cursor+c.maxVisible, len(c.queue))
	if end > c.cursor {
		s.Cards = make([]Card[T], 0, end-c.cursor)
	}
	for i := c.cursor; i < end; i++ {
		s.Cards = append(s.Cards, Card[T]{
			Index:       i,
			Item:        c.queue[i],
			Visual:      DeriveVisual(i, c.cursor, c.maxVisible),
			Interactive: i == c.cursor && c.pending == nil && !c.closed,
		})
	}
	return s
}

func (c *Controller[T]) publish(snap Snapshot[T]) {
	c.subMu.Lock()
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot[T]), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subs[id])
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
