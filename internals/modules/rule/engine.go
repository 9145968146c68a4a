package rule

import (
	"context"
	"pulsewatch/internals/modules/alert"
	"pulsewatch/internals/modules/check"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultCooldown = 15 * time.Minute

type cooldownKey struct {
	monitorID int64
	ruleType  Type
}

// Engine holds the rule sets for registered monitors and evaluates them
// against incoming check results. A per (monitor, rule type) cooldown keeps
// a flapping endpoint from firing the same rule on every tick.
type Engine struct {
	mu        sync.Mutex
	rules     map[int64][]Rule
	lastFired map[cooldownKey]time.Time
	cooldown  time.Duration

	hist   HistoryStore
	logger *zerolog.Logger
	now    func() time.Time
}

func NewEngine(hist HistoryStore, logger *zerolog.Logger) *Engine {
	return &Engine{
		rules:     make(map[int64][]Rule),
		lastFired: make(map[cooldownKey]time.Time),
		cooldown:  defaultCooldown,
		hist:      hist,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRules replaces the rule set for a monitor, dropping disabled rules
// up front so evaluation never sees them.
func (e *Engine) RegisterRules(monitorID int64, rules []Rule) {
	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled() {
			active = append(active, r)
		}
	}

	e.mu.Lock()
	e.rules[monitorID] = active
	e.mu.Unlock()

	e.logger.Debug().
		Int64("monitor_id", monitorID).
		Int("active", len(active)).
		Int("skipped", len(rules)-len(active)).
		Msg("rules registered")
}

// UnregisterRules removes a monitor's rules and its cooldown entries.
func (e *Engine) UnregisterRules(monitorID int64) {
	e.mu.Lock()
	delete(e.rules, monitorID)
	for key := range e.lastFired {
		if key.monitorID == monitorID {
			delete(e.lastFired, key)
		}
	}
	e.mu.Unlock()
}

func (e *Engine) Registered(monitorID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.rules[monitorID]
	return ok
}

// EvaluateAll runs every registered rule for the result's monitor and returns
// the drafts that fired. One rule erroring never stops the others.
func (e *Engine) EvaluateAll(ctx context.Context, monitorName string, latest check.Result) []alert.Draft {
	e.mu.Lock()
	rules := e.rules[latest.MonitorID]
	e.mu.Unlock()

	drafts := make([]alert.Draft, 0)
	for _, r := range rules {
		if e.inCooldown(latest.MonitorID, r.Type()) {
			continue
		}

		draft, err := r.Evaluate(ctx, e.hist, monitorName, latest)
		if err != nil {
			e.logger.Error().Err(err).
				Int64("monitor_id", latest.MonitorID).
				Str("rule_type", string(r.Type())).
				Msg("rule evaluation failed")
			continue
		}
		if draft == nil {
			continue
		}

		e.recordFired(latest.MonitorID, r.Type())
		drafts = append(drafts, *draft)
	}
	return drafts
}

func (e *Engine) inCooldown(monitorID int64, rt Type) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastFired[cooldownKey{monitorID, rt}]
	if !ok {
		return false
	}
	return e.now().Sub(last) < e.cooldown
}

func (e *Engine) recordFired(monitorID int64, rt Type) {
	e.mu.Lock()
	e.lastFired[cooldownKey{monitorID, rt}] = e.now()
	e.mu.Unlock()
}
