package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"football-odds-engine/internal/store"
)

// alertRetention is how long a sent alert is remembered for deduplication.
const alertRetention = time.Hour

// Notifier handles alert notifications
type Notifier struct {
	mu         sync.Mutex
	lastAlerts map[string]time.Time // Dedupe alerts
	cooldown   time.Duration        // Minimum time between same alerts
	logger     *slog.Logger
	sink       Sender
}

// Sender delivers an alert message to an external channel.
type Sender interface {
	Send(text string) error
}

// NewNotifier creates a new notifier logging through slog.Default.
func NewNotifier(cooldown time.Duration) *Notifier {
	return NewNotifierWithLogger(cooldown, slog.Default())
}

// NewNotifierWithLogger creates a notifier writing to logger.
func NewNotifierWithLogger(cooldown time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		lastAlerts: make(map[string]time.Time),
		cooldown:   cooldown,
		logger:     logger,
	}
}

// WithSender forwards every sent value-bet alert to s as well as the log.
func (n *Notifier) WithSender(s Sender) *Notifier {
	n.sink = s
	return n
}

// checkCooldown reports whether key was alerted within the cooldown. If not,
// it records the key as alerted now.
func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if lastTime, ok := n.lastAlerts[key]; ok && time.Since(lastTime) < n.cooldown {
		return true
	}
	n.lastAlerts[key] = time.Now()
	return false
}

func betKey(bet store.ValueBet) string {
	return fmt.Sprintf("%s|%s|%s|%s", bet.League, bet.HomeTeam, bet.AwayTeam, bet.Outcome)
}

// AlertValueBet logs a value bet unless the same fixture outcome was alerted
// within the cooldown. It reports whether the alert was sent.
func (n *Notifier) AlertValueBet(bet store.ValueBet) bool {
	if n.checkCooldown(betKey(bet)) {
		return false
	}

	n.logger.Info("+EV",
		"league", bet.League,
		"fixture", bet.HomeTeam+" v "+bet.AwayTeam,
		"outcome", bet.Outcome,
		"model", bet.Model,
		"prob", fmt.Sprintf("%.1f%%", bet.Probability*100),
		"fair", fmt.Sprintf("%.2f", bet.FairOdds),
		"market", fmt.Sprintf("%.2f", bet.MarketOdds),
		"ev", fmt.Sprintf("%.2f%%", bet.EV),
		"kelly", fmt.Sprintf("%.1f%%", bet.KellyStake*100),
	)

	if n.sink != nil {
		if err := n.sink.Send(FormatValueBet(bet)); err != nil {
			n.logger.Warn("Alert delivery failed", "err", err)
		}
	}
	return true
}

// FormatValueBet renders bet as a short plain-text message.
func FormatValueBet(bet store.ValueBet) string {
	return fmt.Sprintf("+EV %s: %s v %s\n%s @ %.2f (fair %.2f, %s)\nEV %.2f%%  p=%.1f%%  kelly %.1f%%",
		bet.League, bet.HomeTeam, bet.AwayTeam,
		bet.Outcome, bet.MarketOdds, bet.FairOdds, bet.Model,
		bet.EV, bet.Probability*100, bet.KellyStake*100,
	)
}

// LogScan logs a scan completion.
func (n *Notifier) LogScan(leagues, fixtures, valueBets int) {
	n.logger.Info("Scan complete", "leagues", leagues, "fixtures", fixtures, "valueBets", valueBets)
}

// LogError logs an error with the scope it occurred in. Cancellation is
// logged at debug level since it is expected during shutdown.
func (n *Notifier) LogError(ctx context.Context, scope string, err error) {
	level := slog.LevelError
	if ctx.Err() != nil {
		level = slog.LevelDebug
	}
	n.logger.Log(ctx, level, "Error", "scope", scope, "err", err)
}

// CleanupOldAlerts removes stale alert records
func (n *Notifier) CleanupOldAlerts() {
	n.mu.Lock()
	defer n.mu.Unlock()
	cutoff := time.Now().Add(-alertRetention)
	for key, t := range n.lastAlerts {
		if t.Before(cutoff) {
			delete(n.lastAlerts, key)
		}
	}
}
