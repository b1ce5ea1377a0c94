package notifier

import (
	"context"
	"fmt"

	"cowin-slots/model"

	"github.com/gen2brain/beeep"
)

// System raises a desktop notification and, unless silent, beeps.
type System struct {
	silent bool
	beep   func(freq float64, duration int) error
	notify func(title, message, icon string) error
}

func NewSystem(silent bool) *System {
	return &System{silent: silent, beep: beeep.Beep, notify: beeep.Notify}
}

func (s *System) Notify(_ context.Context, matches []model.Match) {
	if len(matches) == 0 {
		return
	}
	if !s.silent {
		if err := s.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			logFailure("beep", err)
		}
	}
	msg := fmt.Sprintf("%d slot(s) found\n%s", len(matches), Summary(matches))
	if err := s.notify(Title, msg, ""); err != nil {
		logFailure("system", err)
	}
}
