// Package health probes provider connectivity on a schedule and on demand.
package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/toolrelay/toolrelay/internal/provider"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultProbeTimeout bounds one connectivity check.
const DefaultProbeTimeout = 5 * time.Second

var scheduleParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Probe is the outcome of one connectivity check.
type Probe struct {
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

// Prober runs TestConnection against every checker concurrently and keeps
// the latest result per provider.
type Prober struct {
	checkers map[string]provider.Checker
	timeout  time.Duration

	mu   sync.RWMutex
	last map[string]Probe

	sf   singleflight.Group
	cron *cron.Cron
}

func NewProber(checkers map[string]provider.Checker, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		checkers: checkers,
		timeout:  timeout,
		last:     make(map[string]Probe),
	}
}

// Run probes every provider now. Concurrent callers share one run, which is
// detached from ctx cancellation so one caller going away cannot fail the
// checks for the others; each check is still bounded by the probe timeout.
func (p *Prober) Run(ctx context.Context) []Probe {
	shared := context.WithoutCancel(ctx)
	v, _, _ := p.sf.Do("probe", func() (any, error) {
		return p.run(shared), nil
	})
	return v.([]Probe)
}

func (p *Prober) run(ctx context.Context) []Probe {
	names := make([]string, 0, len(p.checkers))
	for name := range p.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	probes := make([]Probe, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			probes[i] = p.probe(gctx, name, p.checkers[name])
			return nil
		})
	}
	g.Wait()

	p.mu.Lock()
	for _, pr := range probes {
		p.last[pr.Provider] = pr
	}
	p.mu.Unlock()

	var down []string
	for _, pr := range probes {
		if pr.Status != "ok" {
			down = append(down, pr.Provider)
		}
	}
	if len(down) > 0 {
		log.Warn().Strs("providers", down).Msg("provider health check failed")
	} else {
		log.Debug().Int("providers", len(probes)).Msg("provider health check passed")
	}
	return probes
}

func (p *Prober) probe(ctx context.Context, name string, c provider.Checker) Probe {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := c.TestConnection(ctx)
	pr := Probe{
		Provider:  name,
		Status:    "ok",
		LatencyMs: time.Since(start).Milliseconds(),
		CheckedAt: start.UTC(),
	}
	if err != nil {
		pr.Status = "unavailable"
		pr.Error = err.Error()
	}
	return pr
}

// Last returns the most recent probe per provider, sorted by name. Providers
// never probed are absent.
func (p *Prober) Last() []Probe {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Probe, 0, len(p.last))
	for _, pr := range p.last {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Start runs the prober on schedule, a five-field cron expression or a
// descriptor such as "@every 5m". An empty schedule disables it.
func (p *Prober) Start(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" || len(p.checkers) == 0 {
		return nil
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid health probe schedule %q: %w", schedule, err)
	}

	c := cron.New(cron.WithParser(scheduleParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { p.Run(context.Background()) }); err != nil {
		return fmt.Errorf("schedule health probe: %w", err)
	}
	p.cron = c
	c.Start()
	log.Info().Str("schedule", schedule).Int("providers", len(p.checkers)).Msg("provider health probes scheduled")
	return nil
}

// Stop halts scheduled probes and waits for a running one to finish.
func (p *Prober) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
