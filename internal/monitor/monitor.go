package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/marketclock"
	"github.com/rewired-gh/premiumwatch/internal/metrics"
	"github.com/rewired-gh/premiumwatch/internal/models"
	"github.com/rewired-gh/premiumwatch/internal/notify"
	"github.com/rewired-gh/premiumwatch/internal/valuation"
)

// TargetPremiumLimit is the premium, in percent, at or below which an alert fires.
const TargetPremiumLimit = 2.0

type Config struct {
	FundName     string
	PollInterval time.Duration
	Cooldown     time.Duration
	ClosedChunk  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FundName:     "NASDAQ",
		PollInterval: 10 * time.Minute,
		Cooldown:     time.Hour,
		ClosedChunk:  30 * time.Minute,
	}
}

// QuoteFetcher returns a fresh live quote.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context) (models.Quote, error)
}

// NavProvider returns the official NAV, falling back internally on failure.
type NavProvider interface {
	Current(ctx context.Context) models.NavReading
}

// Dispatcher delivers an alert over every channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert models.Alert) notify.Report
}

// Journal records samples and alerts. It is never read back.
type Journal interface {
	AddSample(sample *models.Sample) error
	AddAlert(alert *models.Alert, channels, failed []string) error
}

// ActionKind says what a scheduler step did.
type ActionKind int

const (
	ActionPolled ActionKind = iota
	ActionAlerted
	ActionSkipped
	ActionClosed
)

func (k ActionKind) String() string {
	switch k {
	case ActionPolled:
		return "polled"
	case ActionAlerted:
		return "alerted"
	case ActionSkipped:
		return "skipped"
	case ActionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Action is the result of one Step: what happened and how long to wait
// before the next step.
type Action struct {
	Kind     ActionKind
	Delay    time.Duration
	Reset    bool
	Sample   *models.Sample
	Alert    *models.Alert
	Report   *notify.Report
	NextOpen time.Time
	Err      error
}

// Monitor holds all per-process monitoring state: the official NAV and the
// alert latch. Step and Run must be called from a single goroutine; Status
// may be called from any goroutine.
type Monitor struct {
	config     Config
	clock      *marketclock.Clock
	nav        NavProvider
	quotes     QuoteFetcher
	dispatcher Dispatcher
	journal    Journal
	metrics    *metrics.Metrics
	now        func() time.Time
	sleeper    Sleeper
	onStep     func(Action)

	officialNav models.NavReading
	latch       *Latch

	mu     sync.RWMutex
	status models.Status
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithJournal records samples and alerts to j.
func WithJournal(j Journal) Option {
	return func(m *Monitor) { m.journal = j }
}

// WithMetrics updates the given collectors on every step.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithSleeper replaces the blocking sleeper used by Run.
func WithSleeper(s Sleeper) Option {
	return func(m *Monitor) { m.sleeper = s }
}

// WithStepHook calls fn after every step Run performs.
func WithStepHook(fn func(Action)) Option {
	return func(m *Monitor) { m.onStep = fn }
}

func New(config Config, clock *marketclock.Clock, nav NavProvider, quotes QuoteFetcher, dispatcher Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		config:     config,
		clock:      clock,
		nav:        nav,
		quotes:     quotes,
		dispatcher: dispatcher,
		now:        time.Now,
		sleeper:    TimerSleeper{},
		latch:      NewLatch(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status.Latch = m.latch.State()
	m.status.LatchName = m.latch.State().String()
	return m
}

// OfficialNAV returns the NAV currently used for iNAV estimation.
func (m *Monitor) OfficialNAV() float64 {
	return m.officialNav.Value
}

// LatchState returns the alert latch position.
func (m *Monitor) LatchState() models.LatchState {
	return m.latch.State()
}

// RefreshNAV fetches the official NAV. Fetch failures yield the fallback
// value and are only logged.
func (m *Monitor) RefreshNAV(ctx context.Context) models.NavReading {
	reading := m.nav.Current(ctx)
	m.officialNav = reading

	if reading.IsFallback() {
		logger.Warn("Official NAV fetch failed, using fallback ₹%.2f: %v", reading.Value, reading.Err)
	} else {
		logger.Info("Official closing NAV (AMFI): ₹%.2f", reading.Value)
	}
	if m.metrics != nil {
		m.metrics.OfficialNAV.Set(reading.Value)
		m.metrics.NavRefreshes.WithLabelValues(string(reading.Source)).Inc()
	}

	m.mu.Lock()
	m.status.OfficialNAV = reading.Value
	m.status.NavSource = reading.Source
	m.mu.Unlock()
	return reading
}

// Evaluate fetches a quote and computes the premium against the current
// official NAV without touching the latch.
func (m *Monitor) Evaluate(ctx context.Context, now time.Time) (models.Sample, error) {
	quote, err := m.quotes.FetchQuote(ctx)
	if err != nil {
		return models.Sample{}, err
	}
	return valuation.Evaluate(m.officialNav.Value, quote, now)
}

// Step runs one scheduler iteration at wall-clock time now and returns what
// happened plus the delay before the next step.
func (m *Monitor) Step(ctx context.Context, now time.Time) Action {
	var act Action

	if m.clock.IsResetMinute(now) {
		m.latch.Reset()
		reading := m.RefreshNAV(ctx)
		act.Reset = true
		logger.Info("New day! Alert latch re-armed, refreshed NAV: ₹%.2f (%s)", reading.Value, reading.Source)
	}

	open := m.clock.IsMarketOpen(now)
	if open {
		act = m.poll(ctx, now, act)
	} else {
		act = m.closed(now, act)
	}

	m.record(now, open, act)
	return act
}

func (m *Monitor) poll(ctx context.Context, now time.Time, act Action) Action {
	act.Delay = m.config.PollInterval

	sample, err := m.Evaluate(ctx, now)
	if err != nil {
		logger.Error("Poll skipped (%s failure): %v", models.FailureKind(err), err)
		act.Kind = ActionSkipped
		act.Err = err
		return act
	}
	act.Sample = &sample

	logger.Info("[%s] Price: ₹%.2f | iNAV: ₹%.2f | FX: %.2f | Premium: %.2f%%",
		now.In(m.clock.Location()).Format("15:04:05"),
		sample.Quote.MarketPrice, sample.INAV, sample.Quote.LiveFX, sample.PremiumPct)

	if m.journal != nil {
		if err := m.journal.AddSample(&sample); err != nil {
			logger.Warn("Failed to journal sample: %v", err)
		}
	}

	if !m.latch.TryFire(sample.PremiumPct, TargetPremiumLimit) {
		act.Kind = ActionPolled
		return act
	}

	logger.Info("🎯 Target hit! Premium %.2f%% <= %.1f%%, triggering alerts", sample.PremiumPct, TargetPremiumLimit)
	alert := models.NewAlert(m.config.FundName, sample, now)
	report := m.dispatcher.Dispatch(ctx, alert)
	if err := report.Err(); err != nil {
		logger.Warn("Alert delivered with failures: %v", err)
	}

	if m.journal != nil {
		failed := make([]string, 0, len(report.Failed))
		for _, name := range report.Attempted {
			if _, ok := report.Failed[name]; ok {
				failed = append(failed, name)
			}
		}
		if err := m.journal.AddAlert(&alert, report.Attempted, failed); err != nil {
			logger.Warn("Failed to journal alert: %v", err)
		}
	}

	act.Kind = ActionAlerted
	act.Alert = &alert
	act.Report = &report
	act.Delay = m.config.Cooldown
	return act
}

// closed waits for the next pre-open mark in chunks of at most ClosedChunk.
// The wait is also capped at the official open so the loop is awake during
// the reset minute.
func (m *Monitor) closed(now time.Time, act Action) Action {
	_, nextOpen := m.clock.SecondsUntilNextOpen(now)
	untilNext := nextOpen.Sub(now)

	delay := m.config.ClosedChunk
	if untilNext < delay {
		delay = untilNext
	}
	if untilOpen := m.clock.UntilOfficialOpen(now); untilOpen < delay {
		delay = untilOpen
	}
	if delay < time.Second {
		delay = time.Second
	}

	logger.Info("[%s] Market closed. Next open %s (in %s), sleeping %s",
		now.In(m.clock.Location()).Format("15:04"),
		nextOpen.Format("Mon 2006-01-02 15:04"),
		untilNext.Round(time.Second), delay.Round(time.Second))

	act.Kind = ActionClosed
	act.NextOpen = nextOpen
	act.Delay = delay
	return act
}

func (m *Monitor) record(now time.Time, open bool, act Action) {
	latch := m.latch.State()

	m.mu.Lock()
	m.status.Latch = latch
	m.status.LatchName = latch.String()
	m.status.MarketOpen = open
	m.status.LastAction = act.Kind.String()
	m.status.Heartbeat = now
	m.status.NextWake = now.Add(act.Delay)
	if act.Sample != nil {
		s := *act.Sample
		m.status.LastSample = &s
	}
	if act.Err != nil {
		m.status.LastError = act.Err.Error()
	} else if act.Kind != ActionClosed {
		m.status.LastError = ""
	}
	m.mu.Unlock()

	if m.metrics == nil {
		return
	}
	m.metrics.Steps.WithLabelValues(act.Kind.String()).Inc()
	m.metrics.SetMarketOpen(open)
	m.metrics.SetLatchFired(latch == models.Fired)
	if act.Err != nil {
		m.metrics.Failures.WithLabelValues(models.FailureKind(act.Err)).Inc()
	}
	if act.Sample != nil {
		m.metrics.PremiumPct.Set(act.Sample.PremiumPct)
		m.metrics.INAV.Set(act.Sample.INAV)
		m.metrics.MarketPrice.Set(act.Sample.Quote.MarketPrice)
	}
	if act.Kind == ActionAlerted {
		m.metrics.Alerts.Inc()
		for name := range act.Report.Failed {
			m.metrics.DispatchFailures.WithLabelValues(name).Inc()
		}
	}
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() models.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.status
	if s.LastSample != nil {
		sample := *s.LastSample
		s.LastSample = &sample
	}
	return s
}

// Run fetches the official NAV and then steps until ctx is cancelled.
// Only cancellation ends the loop; every other failure is absorbed by Step.
func (m *Monitor) Run(ctx context.Context) error {
	m.RefreshNAV(ctx)
	logger.Info("Target premium: <= %.1f%%", TargetPremiumLimit)

	for {
		act := m.Step(ctx, m.now())
		if m.onStep != nil {
			m.onStep(act)
		}
		if err := m.sleeper.Sleep(ctx, act.Delay); err != nil {
			return err
		}
	}
}
