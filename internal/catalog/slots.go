package catalog

import (
	"fmt"
	"time"
)

// Window describes the delivery hours offered on the menu page.
type Window struct {
	Start           string `yaml:"start" json:"startTime"`
	End             string `yaml:"end" json:"endTime"`
	IntervalMinutes int    `yaml:"interval_minutes" json:"intervalMinutes"`
}

type Slot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TimeSlots lists slots from Start to End inclusive, IntervalMinutes apart.
// A zero window yields no slots.
func TimeSlots(w Window) ([]Slot, error) {
	if w.Start == "" && w.End == "" {
		return nil, nil
	}
	start, err := time.Parse("15:04", w.Start)
	if err != nil {
		return nil, fmt.Errorf("catalog: start %q: %w", w.Start, ErrInvalidWindow)
	}
	end, err := time.Parse("15:04", w.End)
	if err != nil {
		return nil, fmt.Errorf("catalog: end %q: %w", w.End, ErrInvalidWindow)
	}
	if w.IntervalMinutes <= 0 {
		return nil, fmt.Errorf("catalog: interval %d: %w", w.IntervalMinutes, ErrInvalidWindow)
	}

	var slots []Slot
	step := time.Duration(w.IntervalMinutes) * time.Minute
	for t := start; !t.After(end); t = t.Add(step) {
		slots = append(slots, Slot{
			Value: t.Format("15:04"),
			Label: t.Format("3:04 PM"),
		})
	}
	return slots, nil
}
