// Package notify forwards alerts to external channels. Delivery is
// asynchronous: Notify never blocks the monitoring tick.
package notify

import (
	"fmt"

	"github.com/Guliveer/watchpost/internal/models"
)

// Notifier receives every alert the monitor raises.
type Notifier interface {
	Notify(alert models.Alert)
}

// Nop discards alerts.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(models.Alert) {}

// FormatAlert renders an alert as plain text for chat delivery.
func FormatAlert(a models.Alert) string {
	icon := "🟡"
	if a.Priority == models.PriorityHigh {
		icon = "🔴"
	}
	return fmt.Sprintf("%s %s priority alert (%s)\n%s\n\n%s", icon, a.Priority, a.Time, a.Message, a.Details)
}
