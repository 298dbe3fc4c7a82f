// Package claim gates and issues Twitch Drops reward claims, enforcing a client-side
// cooldown after every attempt.
package claim

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Its-donkey/quinfall-site/internal/backend"
	"github.com/Its-donkey/quinfall-site/internal/drops"
	"github.com/Its-donkey/quinfall-site/internal/drops/linkstate"
)

// DefaultCooldown is the pause after any claim attempt, successful or not.
const DefaultCooldown = 10 * time.Second

// Collector issues the claim request. *backend.Client implements it.
type Collector interface {
	Collect(ctx context.Context) (backend.CollectResponse, error)
}

// Ticker is the subset of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// State is the session-local claim state. It is never persisted.
type State struct {
	RewardsCollected         bool
	CooldownSecondsRemaining int
	LastMessage              drops.Message
	InFlight                 bool
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithCooldown overrides DefaultCooldown. It is rounded down to whole seconds.
func WithCooldown(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= time.Second {
			c.cooldownSeconds = int(d / time.Second)
		}
	}
}

// WithTicker replaces the one-second ticker driving the countdown.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(c *Coordinator) {
		if newTicker != nil {
			c.newTicker = newTicker
		}
	}
}

// WithOnChange registers a callback invoked, outside the lock, after every state change.
func WithOnChange(fn func(State)) Option {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Coordinator owns the claim state machine for one page lifetime.
type Coordinator struct {
	mu              sync.Mutex
	collector       Collector
	cooldownSeconds int
	newTicker       func(time.Duration) Ticker
	onChange        func(State)
	logger          logrus.FieldLogger

	state State
	stop  chan struct{}
}

// New builds a Coordinator issuing claims through collector.
func New(collector Collector, opts ...Option) *Coordinator {
	c := &Coordinator{
		collector:       collector,
		cooldownSeconds: int(DefaultCooldown / time.Second),
		newTicker:       NewStdTicker,
		logger:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanClaim reports whether the claim action is invocable for link.
func (c *Coordinator) CanClaim(link linkstate.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canClaimLocked(link)
}

func (c *Coordinator) canClaimLocked(link linkstate.State) bool {
	return link.SteamLinked && link.TwitchLinked &&
		!c.state.RewardsCollected &&
		!c.state.InFlight &&
		c.state.CooldownSecondsRemaining == 0
}

// Announce replaces the visible message, e.g. with a link conflict from the redirect.
func (c *Coordinator) Announce(msg drops.Message) {
	c.mu.Lock()
	c.state.LastMessage = msg
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
}

// Claim issues one claim request when the action is invocable and reports whether a
// request was sent. Every settled attempt starts the cooldown, whatever its outcome.
func (c *Coordinator) Claim(ctx context.Context, link linkstate.State) (drops.Result, bool) {
	c.mu.Lock()
	if !c.canClaimLocked(link) {
		c.mu.Unlock()
		return drops.Result{}, false
	}
	c.state.InFlight = true
	c.state.LastMessage = drops.Message{}
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)

	resp, err := c.collector.Collect(ctx)
	result := Interpret(resp, err)
	entry := c.logger.WithField("outcome", result.Kind.String())
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("drops: claim settled")

	c.mu.Lock()
	c.state.InFlight = false
	if result.Kind == drops.KindSuccess {
		c.state.RewardsCollected = true
	}
	c.state.LastMessage = result.Message()
	c.state.CooldownSecondsRemaining = c.cooldownSeconds
	c.startCountdownLocked()
	snapshot = c.state
	c.mu.Unlock()
	c.notify(snapshot)

	return result, true
}

// Interpret converts the raw collect response into the tagged result.
func Interpret(resp backend.CollectResponse, err error) drops.Result {
	if err != nil {
		return drops.Result{Kind: drops.KindNetworkError, Detail: drops.DefaultServerError}
	}
	msg := strings.TrimSpace(resp.Message)
	if resp.Success {
		if msg == "" {
			msg = drops.DefaultClaimSuccess
		}
		return drops.Result{Kind: drops.KindSuccess, Detail: msg}
	}
	if msg == "" {
		msg = drops.DefaultClaimRejected
	}
	return drops.Result{Kind: drops.KindRejected, Detail: msg}
}

// Tick removes one second from the cooldown and returns what is left.
func (c *Coordinator) Tick() int {
	c.mu.Lock()
	if c.state.CooldownSecondsRemaining == 0 {
		c.mu.Unlock()
		return 0
	}
	c.state.CooldownSecondsRemaining--
	snapshot := c.state
	c.mu.Unlock()
	c.notify(snapshot)
	return snapshot.CooldownSecondsRemaining
}

// Close stops a running countdown.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Coordinator) startCountdownLocked() {
	if c.stop != nil {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	ticker := c.newTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				if c.Tick() == 0 {
					return
				}
			}
		}
	}()
}

func (c *Coordinator) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
