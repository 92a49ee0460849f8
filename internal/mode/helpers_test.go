package mode

import (
	"context"
	"time"

	"codeberg.org/mutker/hrvmon/internal/clock"
	"codeberg.org/mutker/hrvmon/internal/hrv"
	"codeberg.org/mutker/hrvmon/internal/input"
	"codeberg.org/mutker/hrvmon/internal/metrics"
	"codeberg.org/mutker/hrvmon/internal/ppg"
	"codeberg.org/mutker/hrvmon/internal/ring"
)

type fakeDisplay struct {
	menus    [][]string
	selected []int
	live     []int
	statuses []string
	results  []hrv.Statistics
	titles   []string
	errors   []string
}

func (d *fakeDisplay) ShowMenu(labels []string, selected int) {
	d.menus = append(d.menus, labels)
	d.selected = append(d.selected, selected)
}

func (d *fakeDisplay) ShowLive(averageHR int, _ float64) { d.live = append(d.live, averageHR) }
func (d *fakeDisplay) ShowStatus(msg string)            { d.statuses = append(d.statuses, msg) }
func (d *fakeDisplay) ShowError(msg string)             { d.errors = append(d.errors, msg) }

func (d *fakeDisplay) ShowResult(title string, stats hrv.Statistics) {
	d.titles = append(d.titles, title)
	d.results = append(d.results, stats)
}

type fakeSampler struct {
	starts, stops int
}

func (s *fakeSampler) Start(context.Context) { s.starts++ }
func (s *fakeSampler) Stop()                 { s.stops++ }

type fakeAnalyzer struct {
	stats hrv.Statistics
	err   error
	got   []int
}

func (a *fakeAnalyzer) Analyze(_ context.Context, ppis []int) (hrv.Statistics, error) {
	a.got = append([]int(nil), ppis...)
	return a.stats, a.err
}

type fakeHistory struct {
	saved   []hrv.Statistics
	stored  hrv.Statistics
	loadErr error
	saveErr error
}

func (h *fakeHistory) Save(stats hrv.Statistics) error {
	if h.saveErr != nil {
		return h.saveErr
	}
	h.saved = append(h.saved, stats)
	h.stored = stats
	return nil
}

func (h *fakeHistory) Load() (hrv.Statistics, error) {
	return h.stored, h.loadErr
}

type fakePublisher struct {
	published []hrv.Statistics
}

func (p *fakePublisher) Publish(stats hrv.Statistics) { p.published = append(p.published, stats) }

type fakeSessions struct {
	recorded []*metrics.SessionSnapshot
}

func (s *fakeSessions) Record(_ context.Context, snapshot *metrics.SessionSnapshot) error {
	s.recorded = append(s.recorded, snapshot)
	return nil
}

type fakeTelemetry struct {
	peaks, rejected int
	modes           []string
	completed       map[string]int
}

func (t *fakeTelemetry) PeakDetected()            { t.peaks++ }
func (t *fakeTelemetry) HeartRateRejected()       { t.rejected++ }
func (t *fakeTelemetry) AverageHR(int)            {}
func (t *fakeTelemetry) ModeChanged(state string) { t.modes = append(t.modes, state) }

func (t *fakeTelemetry) SessionCompleted(kind string, err error) {
	if t.completed == nil {
		t.completed = map[string]int{}
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	t.completed[kind+":"+result]++
}

type harness struct {
	ctrl      *Controller
	clock     *clock.Manual
	samples   *ring.Ring[uint16]
	events    *ring.Ring[input.Event]
	pipeline  *ppg.Pipeline
	display   *fakeDisplay
	sampler   *fakeSampler
	analyzer  *fakeAnalyzer
	history   *fakeHistory
	publisher *fakePublisher
	sessions  *fakeSessions
	telemetry *fakeTelemetry
}

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newHarness(start uint32) *harness {
	h := &harness{
		clock:     clock.NewManual(start),
		samples:   ring.New[uint16](500),
		events:    ring.New[input.Event](30),
		pipeline:  ppg.NewPipeline(ppg.DefaultConfig()),
		display:   &fakeDisplay{},
		sampler:   &fakeSampler{},
		analyzer:  &fakeAnalyzer{},
		history:   &fakeHistory{},
		publisher: &fakePublisher{},
		sessions:  &fakeSessions{},
		telemetry: &fakeTelemetry{},
	}
	return h
}

func (h *harness) build(mut func(*Deps)) error {
	d := Deps{
		Clock:     h.clock,
		Samples:   h.samples,
		Events:    h.events,
		Pipeline:  h.pipeline,
		Sampler:   h.sampler,
		Display:   h.display,
		Analyzer:  h.analyzer,
		History:   h.history,
		Publisher: h.publisher,
		Sessions:  h.sessions,
		Telemetry: h.telemetry,
		Source:    "synthetic",
		Now:       func() time.Time { return testNow },
	}
	if mut != nil {
		mut(&d)
	}

	ctrl, err := New(DefaultConfig(), d)
	if err != nil {
		return err
	}
	h.ctrl = ctrl
	h.ctrl.Start()
	return nil
}

// feed pushes one sample per 4 ms tick and steps the controller, for at
// most n samples or until the controller leaves state.
func (h *harness) feed(ctx context.Context, n int, state State, sample func(i int) uint16) int {
	i := 0
	for ; i < n && h.ctrl.State() == state; i++ {
		h.samples.Push(sample(i))
		h.clock.Advance(4 * time.Millisecond)
		h.ctrl.Step(ctx)
	}
	return i
}

func (h *harness) press(ctx context.Context, events ...input.Event) {
	for _, ev := range events {
		h.events.Push(ev)
		h.ctrl.Step(ctx)
	}
}
