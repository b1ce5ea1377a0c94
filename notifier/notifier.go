package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cowin-slots/config"
	"cowin-slots/model"
)

const (
	Title = "Co-Win Slot Found"
)

// Notifier alerts the user about new matches. Delivery is best effort: failures
// are logged and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, matches []model.Match)
}

// New picks the notifier for the configured communication type.
func New(cfg *config.Config) Notifier {
	switch cfg.CommunicationType {
	case config.CommunicationNtfy:
		return &Ntfy{
			client: &http.Client{Timeout: 10 * time.Second},
			server: cfg.NtfyServer,
			topic:  cfg.NtfyTopic,
		}
	case config.CommunicationEmail:
		return &Email{
			host:      cfg.SMTP.Host,
			port:      cfg.SMTP.Port,
			from:      cfg.SMTP.Email,
			password:  cfg.SMTP.Password,
			receivers: cfg.Receivers,
		}
	case config.CommunicationNone:
		return Noop{}
	default:
		return NewSystem(cfg.Silent)
	}
}

type Noop struct{}

func (Noop) Notify(context.Context, []model.Match) {}

// Summary renders one line per match.
func Summary(matches []model.Match) string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		s := m.Slot
		lines = append(lines, fmt.Sprintf("%s, %d: %s %s dose%d x%d (%s)",
			s.Name, s.Pincode, s.Date, s.Vaccine, m.Dose, m.Capacity, s.FeeClass()))
	}
	return strings.Join(lines, "\n")
}

func logFailure(kind string, err error) {
	slog.Warn("notification failed", slog.String("notifier", kind), slog.Any("error", err))
}
