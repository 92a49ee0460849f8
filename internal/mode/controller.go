// Package mode implements the Mode Controller: the main-loop state machine
// that consumes the input and acquisition queues, drives the PPG pipeline and
// calls the display, cloud, history and publish collaborators.
package mode

import (
	"context"
	"time"

	"codeberg.org/mutker/hrvmon/internal/clock"
	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	"codeberg.org/mutker/hrvmon/internal/input"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"codeberg.org/mutker/hrvmon/internal/metrics"
	"codeberg.org/mutker/hrvmon/internal/ppg"
	"codeberg.org/mutker/hrvmon/internal/ring"
)

// SessionLog stores completed sessions.
type SessionLog interface {
	Record(ctx context.Context, snapshot *metrics.SessionSnapshot) error
}

// Deps are the queues, pipeline and collaborators the controller drives.
// Analyzer, History, Publisher, Sessions and Telemetry are optional.
type Deps struct {
	Clock     clock.Clock
	Samples   *ring.Ring[uint16]
	Events    *ring.Ring[input.Event]
	Pipeline  *ppg.Pipeline
	Sampler   Sampler
	Display   Display
	Analyzer  Analyzer
	History   HistoryStore
	Publisher Publisher
	Sessions  SessionLog
	Telemetry Telemetry
	Logger    logger.Logger
	Source    string
	Now       func() time.Time
}

type session struct {
	kind       State
	rec        *hrv.Recording
	startTicks uint32
}

// Controller is the Mode Controller. All methods must be called from the
// main-loop goroutine.
type Controller struct {
	cfg Config

	clock     clock.Clock
	samples   *ring.Ring[uint16]
	events    *ring.Ring[input.Event]
	pipeline  *ppg.Pipeline
	sampler   Sampler
	display   Display
	analyzer  Analyzer
	history   HistoryStore
	publisher Publisher
	sessions  SessionLog
	telemetry Telemetry
	log       logger.Logger
	source    string
	now       func() time.Time

	menu        []MenuOption
	labels      []string
	state       State
	selected    int
	menuVisible bool
	session     *session
	lastRefresh uint32
	overflows   uint64
}

func New(cfg Config, d Deps) (*Controller, error) {
	errFactory := errors.New()

	missing := ""
	switch {
	case d.Clock == nil:
		missing = "clock"
	case d.Samples == nil:
		missing = "samples"
	case d.Events == nil:
		missing = "events"
	case d.Pipeline == nil:
		missing = "pipeline"
	case d.Sampler == nil:
		missing = "sampler"
	case d.Display == nil:
		missing = "display"
	}
	if missing != "" {
		return nil, errFactory.WithData(ErrInvalidDeps, struct {
			Missing string
		}{
			Missing: missing,
		})
	}

	if cfg.SessionDuration <= 0 {
		return nil, errFactory.WithData(ErrInvalidDeps, struct {
			SessionDuration time.Duration
		}{
			SessionDuration: cfg.SessionDuration,
		})
	}
	defaults := DefaultConfig()
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = defaults.IdleInterval
	}
	if cfg.CloudTimeout <= 0 {
		cfg.CloudTimeout = defaults.CloudTimeout
	}

	c := &Controller{
		cfg:       cfg,
		clock:     d.Clock,
		samples:   d.Samples,
		events:    d.Events,
		pipeline:  d.Pipeline,
		sampler:   d.Sampler,
		display:   d.Display,
		analyzer:  d.Analyzer,
		history:   d.History,
		publisher: d.Publisher,
		sessions:  d.Sessions,
		telemetry: d.Telemetry,
		log:       d.Logger,
		source:    d.Source,
		now:       d.Now,
		menu:      DefaultMenu,
		state:     MenuDisplayed,
	}
	if c.sessions == nil {
		c.sessions = noopSessionLog{}
	}
	if c.telemetry == nil {
		c.telemetry = noopTelemetry{}
	}
	if c.log == nil {
		c.log = logger.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.labels = make([]string, len(c.menu))
	for i, opt := range c.menu {
		c.labels[i] = opt.Label
	}

	return c, nil
}

func (c *Controller) State() State {
	return c.state
}

// Selected returns the highlighted menu index.
func (c *Controller) Selected() int {
	return c.selected
}

// MenuVisible reports whether the menu, rather than a result, is on screen.
func (c *Controller) MenuVisible() bool {
	return c.menuVisible
}

// Recording returns the active session's recording, or nil.
func (c *Controller) Recording() *hrv.Recording {
	if c.session == nil {
		return nil
	}
	return c.session.rec
}

// Start draws the menu.
func (c *Controller) Start() {
	c.setState(MenuDisplayed)
	c.showMenu()
}

// Run calls Step until ctx is done, sleeping briefly whenever there was
// nothing to do.
func (c *Controller) Run(ctx context.Context) error {
	c.Start()

	idle := time.NewTicker(c.cfg.IdleInterval)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		default:
		}

		if c.Step(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		case <-idle.C:
		}
	}
}

// Stop abandons any active session and returns to the menu state.
func (c *Controller) Stop() {
	c.leave()
	c.setState(MenuDisplayed)
}

// Step performs one main-loop iteration: at most one input event, then all
// pending samples, then the session deadline check. It reports whether any
// work was done.
func (c *Controller) Step(ctx context.Context) bool {
	worked := false

	if ev, ok := c.events.Pop(); ok {
		worked = true
		if err := c.HandleEvent(ctx, ev); err != nil {
			c.log.Debug().Err(err).Str("state", c.state.String()).Msg("Event handling ended with error")
		}
	}

	if !c.state.Sampling() {
		return worked
	}

	if c.drainSamples() > 0 {
		worked = true
	}
	c.checkOverflow()

	if c.state.Timed() && clock.Elapsed(c.clock.TicksMs(), c.session.startTicks, c.cfg.SessionDuration) {
		if err := c.finish(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Session failed")
		}
		worked = true
	}

	return worked
}

// HandleEvent applies one input event to the current state.
func (c *Controller) HandleEvent(ctx context.Context, ev input.Event) error {
	switch c.state {
	case MenuDisplayed:
		return c.handleMenu(ctx, ev)
	case LiveMonitor:
		if ev == input.Select {
			c.leave()
			c.setState(MenuDisplayed)
			c.showMenu()
		}
	case HistoryView:
		if ev == input.Select {
			c.setState(MenuDisplayed)
			c.showMenu()
		}
	default:
		c.log.Debug().
			Str("state", c.state.String()).
			Str("event", ev.String()).
			Msg("Input ignored during session")
	}

	return nil
}

func (c *Controller) handleMenu(ctx context.Context, ev input.Event) error {
	if !c.menuVisible {
		c.showMenu()
		return nil
	}

	switch ev {
	case input.Clockwise, input.CounterClockwise:
		n := len(c.menu)
		c.selected = ((c.selected+int(ev))%n + n) % n
		c.showMenu()
	case input.Select:
		return c.enter(ctx, c.menu[c.selected].State)
	}

	return nil
}

func (c *Controller) enter(ctx context.Context, target State) error {
	errFactory := errors.New()

	switch target {
	case HistoryView:
		if c.history == nil {
			return c.fail("History not available", errFactory.WithMessage(ErrNotConfigured, "history store"))
		}
		stats, err := c.history.Load()
		if err != nil {
			return c.fail("No history available", errFactory.Wrap(ErrCollaborator, err))
		}
		c.setState(HistoryView)
		c.menuVisible = false
		c.display.ShowResult("Last Kubios result", stats)
		return nil
	case CloudHRVSession:
		if c.analyzer == nil {
			return c.fail("Kubios not configured", errFactory.WithMessage(ErrNotConfigured, "cloud analyzer"))
		}
	}

	c.startSession(ctx, target)
	return nil
}

func (c *Controller) startSession(ctx context.Context, kind State) {
	c.pipeline.Reset()
	c.samples.Reset()
	c.overflows = c.samples.Overflows()

	s := &session{kind: kind, startTicks: c.clock.TicksMs()}
	if kind.Timed() {
		s.rec = hrv.NewRecording(c.now())
	}
	c.session = s
	c.lastRefresh = s.startTicks
	c.menuVisible = false

	if kind == LiveMonitor {
		c.pipeline.SetSink(ppg.SinkFunc(c.drawLive))
		c.display.ShowStatus("Measuring HR...")
	} else {
		c.pipeline.SetSink(nil)
		c.display.ShowStatus("Collecting data for " + c.cfg.SessionDuration.String())
	}

	c.setState(kind)
	c.sampler.Start(ctx)

	c.log.Info().
		Str("mode", kind.String()).
		Dur("duration", c.cfg.SessionDuration).
		Msg("Session started")
}

// leave stops sampling and discards everything the session accumulated.
func (c *Controller) leave() {
	if c.session == nil {
		return
	}

	c.sampler.Stop()
	c.samples.Reset()
	c.pipeline.SetSink(nil)
	c.pipeline.Reset()
	c.session = nil
}

func (c *Controller) drainSamples() int {
	var rec *hrv.Recording
	if c.session != nil {
		rec = c.session.rec
	}

	return c.samples.Drain(func(raw uint16) {
		r := c.pipeline.Process(raw, rec)
		if !r.Peak {
			return
		}
		c.telemetry.PeakDetected()
		if !r.Beat.Valid {
			c.telemetry.HeartRateRejected()
		}
		if r.Beat.HasAverage {
			c.telemetry.AverageHR(r.Beat.AverageHR)
		}
	})
}

func (c *Controller) checkOverflow() {
	n := c.samples.Overflows()
	if n == c.overflows {
		return
	}

	c.log.Warn().
		Uint64("dropped", n-c.overflows).
		Str("mode", c.state.String()).
		Msg("Acquisition queue overflow, oldest samples dropped")
	c.overflows = n
}

func (c *Controller) drawLive(r ppg.Reading) {
	now := c.clock.TicksMs()
	if !clock.Elapsed(now, c.lastRefresh, c.cfg.DisplayRefresh) {
		return
	}
	c.lastRefresh = now
	c.display.ShowLive(r.AverageHR, r.Filtered)
}

// finish ends a timed session and reports its result.
func (c *Controller) finish(ctx context.Context) error {
	s := c.session
	elapsed := time.Duration(clock.Diff(c.clock.TicksMs(), s.startTicks)) * time.Millisecond
	c.leave()

	var (
		stats hrv.Statistics
		err   error
		title string
	)
	switch s.kind {
	case BasicHRVSession:
		title = "Your HR analysis:"
		stats, err = c.basicResult(s)
	case CloudHRVSession:
		title = "Kubios analysis:"
		stats, err = c.cloudResult(ctx, s)
	}

	c.telemetry.SessionCompleted(s.kind.String(), err)

	if err != nil {
		msg := "Analysis failed"
		if errors.HasCode(err, ErrInsufficientData) {
			msg = "Not enough data, try again"
		}
		return c.fail(msg, err)
	}

	c.setState(MenuDisplayed)
	c.menuVisible = false
	c.display.ShowResult(title, stats)

	snapshot := &metrics.SessionSnapshot{
		ID:        s.rec.ID,
		Mode:      s.kind.String(),
		Source:    c.source,
		StartedAt: s.rec.StartedAt,
		Duration:  elapsed,
		PPICount:  len(s.rec.PPIs),
		Stats:     stats,
	}
	if err := c.sessions.Record(ctx, snapshot); err != nil {
		c.log.Warn().Err(err).Msg("Failed to record session")
	}

	c.log.Info().
		Str("mode", s.kind.String()).
		Int("ppis", len(s.rec.PPIs)).
		Int("mean_hr", stats.MeanHR).
		Float64("sdnn", stats.SDNN).
		Float64("rmssd", stats.RMSSD).
		Msg("Session completed")

	return nil
}

func (c *Controller) basicResult(s *session) (hrv.Statistics, error) {
	stats, err := s.rec.Statistics(c.now())
	if err != nil {
		return hrv.Statistics{}, err
	}

	if c.publisher != nil {
		c.publisher.Publish(stats)
	}

	return stats, nil
}

func (c *Controller) cloudResult(ctx context.Context, s *session) (hrv.Statistics, error) {
	errFactory := errors.New()

	if len(s.rec.PPIs) < 2 {
		return hrv.Statistics{}, errFactory.WithData(ErrInsufficientData, struct {
			PPIs int
		}{
			PPIs: len(s.rec.PPIs),
		})
	}

	c.display.ShowStatus("Analyzing...")

	actx, cancel := context.WithTimeout(ctx, c.cfg.CloudTimeout)
	defer cancel()

	stats, err := c.analyzer.Analyze(actx, s.rec.PPIs)
	if err != nil {
		if errors.HasCode(err, ErrCollaborator) {
			return hrv.Statistics{}, err
		}
		return hrv.Statistics{}, errFactory.Wrap(ErrCollaborator, err)
	}
	if stats.Time.IsZero() {
		stats.Time = c.now()
	}

	if c.history != nil {
		if err := c.history.Save(stats); err != nil {
			return hrv.Statistics{}, errFactory.Wrap(ErrCollaborator, err)
		}
	}

	return stats, nil
}

// fail shows msg, returns to the menu state and hands err back.
func (c *Controller) fail(msg string, err error) error {
	c.setState(MenuDisplayed)
	c.menuVisible = false
	c.display.ShowError(msg)
	c.log.Warn().Err(err).Str("code", string(errors.CodeOf(err))).Msg(msg)

	return err
}

func (c *Controller) showMenu() {
	c.menuVisible = true
	c.display.ShowMenu(c.labels, c.selected)
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	c.state = s
	c.telemetry.ModeChanged(s.String())
}
