package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/premiumwatch/internal/health"
	"github.com/rewired-gh/premiumwatch/internal/models"
	"github.com/rewired-gh/premiumwatch/internal/monitor"
)

type recordingOps struct {
	errs       []error
	recoveries []int
}

func (r *recordingOps) SendError(_ context.Context, err error) error {
	r.errs = append(r.errs, err)
	return nil
}

func (r *recordingOps) SendRecovery(_ context.Context, n int) error {
	r.recoveries = append(r.recoveries, n)
	return nil
}

func TestFailureTrackerReportsStreakEdges(t *testing.T) {
	ops := &recordingOps{}
	f := newFailureTracker(ops)
	ctx := context.Background()
	fail := monitor.Action{Kind: monitor.ActionSkipped, Err: errors.New("timeout")}

	f.observe(ctx, monitor.Action{Kind: monitor.ActionPolled})
	f.observe(ctx, fail)
	f.observe(ctx, fail)
	f.observe(ctx, monitor.Action{Kind: monitor.ActionClosed})
	f.observe(ctx, fail)
	f.observe(ctx, monitor.Action{Kind: monitor.ActionAlerted})
	f.observe(ctx, monitor.Action{Kind: monitor.ActionPolled})

	assert.Len(t, ops.errs, 1, "only the first failure of a streak is reported")
	assert.Equal(t, []int{3}, ops.recoveries)
}

func TestNilFailureTracker(t *testing.T) {
	var f *failureTracker
	assert.NotPanics(t, func() {
		f.observe(context.Background(), monitor.Action{Kind: monitor.ActionSkipped})
	})
}

func TestFormatStatus(t *testing.T) {
	st := models.Status{
		LatchName:   "armed",
		OfficialNAV: 223.52,
		NavSource:   models.NavSourceAMFI,
		MarketOpen:  true,
		LastAction:  "polled",
		LastSample: &models.Sample{
			Quote:      models.Quote{MarketPrice: 230, LiveFX: 83.5},
			INAV:       224.87,
			PremiumPct: 2.28,
		},
		LastError: "",
		NextWake:  time.Date(2026, 10, 19, 5, 0, 0, 0, time.UTC),
	}

	got := formatStatus(st)
	assert.True(t, strings.Contains(got, "Latch: armed"))
	assert.True(t, strings.Contains(got, "Official NAV: ₹223.52 (amfi)"))
	assert.True(t, strings.Contains(got, "Premium: 2.28%"))
	assert.True(t, strings.Contains(got, "Next wake: Mon 10:30"))
	assert.False(t, strings.Contains(got, "Last error"))
}

func TestStartHealthBindFailureKeepsGroupAlive(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	srv := health.NewServer(health.Config{ListenAddr: taken.Addr().String(), StaleAfter: time.Hour},
		func() models.Status { return models.Status{} }, nil)
	assert.False(t, startHealth(gctx, g, srv))

	stepped := make(chan struct{})
	g.Go(func() error {
		close(stepped)
		<-gctx.Done()
		return nil
	})
	<-stepped
	assert.NoError(t, gctx.Err(), "a failed health bind must not cancel the monitor")

	cancel()
	assert.NoError(t, g.Wait())
}

func TestStartHealthServesUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	srv := health.NewServer(health.Config{ListenAddr: "127.0.0.1:0", StaleAfter: time.Hour},
		func() models.Status { return models.Status{Heartbeat: time.Now()} }, nil)
	require.True(t, startHealth(gctx, g, srv))

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, g.Wait())
}
