// Package notify surfaces desktop notifications over the freedesktop
// DBus interface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"hark/internal/config"
)

// Notifier posts replaceable desktop notifications. The zero timeout
// leaves dismissal to the notification server.
type Notifier struct {
	cfg    config.NotifyConfig
	logger *slog.Logger

	mu     sync.Mutex
	lastID uint32

	// send is swapped out by tests.
	send func(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error)
}

// New builds a notifier from config.
func New(cfg config.NotifyConfig, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger, send: busctlNotify}
}

// Notify posts one notification, replacing the previous one. Failures
// are logged and swallowed; notifications are best-effort.
func (n *Notifier) Notify(ctx context.Context, title, message string) {
	if !n.cfg.Enable {
		return
	}

	appName := strings.TrimSpace(n.cfg.AppName)
	if appName == "" {
		appName = "hark"
	}

	n.mu.Lock()
	replaceID := n.lastID
	n.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	id, err := n.send(sendCtx, appName, replaceID, title, message, 0)
	if err != nil {
		if n.logger != nil {
			n.logger.Debug("desktop notification failed", "error", err.Error())
		}
		return
	}

	n.mu.Lock()
	n.lastID = id
	n.mu.Unlock()
}

// busctlNotify sends a freedesktop notification over DBus via busctl
// and returns the notification ID assigned by the server.
func busctlNotify(ctx context.Context, appName string, replaceID uint32, summary, body string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		fmt.Sprintf("%d", replaceID),
		"",
		summary,
		body,
		"0", // actions array length
		"0", // hints map length
		fmt.Sprintf("%d", timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}
