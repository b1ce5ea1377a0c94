package sink

import (
	"fmt"
	"os"
	"strings"
	"time"

	"cowin-slots/model"
)

// TextSink appends a human readable block per match.
type TextSink struct {
	path string
}

func NewTextSink(path string) *TextSink {
	return &TextSink{path: path}
}

func (s *TextSink) Write(matches []model.Match, foundAt time.Time) error {
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(FormatMatch(m, foundAt))
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open text log %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write text log %s: %w", s.path, err)
	}
	return nil
}

func FormatMatch(m model.Match, foundAt time.Time) string {
	s := m.Slot
	var b strings.Builder
	b.WriteString("====== Found a slot near you.. ======\n")
	fmt.Fprintf(&b, "Found At = %s\n", foundAt.Format(model.BookingTimeLayout))
	fmt.Fprintf(&b, "Name = %s\n", s.Name)
	fmt.Fprintf(&b, "Address = %s\n", s.Address)
	fmt.Fprintf(&b, "Date = %s\n", s.Date)
	fmt.Fprintf(&b, "Available Capacity = %d\n", s.Capacity)
	fmt.Fprintf(&b, "Vaccine = %s\n", s.Vaccine)
	fmt.Fprintf(&b, "Fee Type = %s\n", s.FeeClass())
	fmt.Fprintf(&b, "Slots = %s\n", strings.Join(s.Slots, ", "))
	fmt.Fprintf(&b, "Pincode = %d\n", s.Pincode)
	fmt.Fprintf(&b, "District Name = %s\n", s.DistrictName)
	fmt.Fprintf(&b, "Available Dose1 = %d\n", s.CapacityDose1)
	fmt.Fprintf(&b, "Available Dose2 = %d\n", s.CapacityDose2)
	fmt.Fprintf(&b, "Matched Dose = %d\n", m.Dose)
	b.WriteString("=====================================\n\n")
	return b.String()
}
