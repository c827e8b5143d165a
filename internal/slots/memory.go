// SPDX-License-Identifier: MIT

package slots

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Availability used in development and tests.
type Memory struct {
	mu     sync.Mutex
	open   map[string]Slot
	booked map[string]ContactInfo
}

// NewMemory seeds an in-memory availability with the given slots.
func NewMemory(seed []Slot) *Memory {
	m := &Memory{
		open:   make(map[string]Slot, len(seed)),
		booked: make(map[string]ContactInfo),
	}
	for _, s := range seed {
		m.open[s.ID] = s
	}
	return m
}

// ListCandidates returns open slots matching the preference, soonest first.
func (m *Memory) ListCandidates(_ context.Context, preference string) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Slot
	for _, s := range m.open {
		if matchesPreference(s, preference) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Book reserves a slot; a second booking of the same slot conflicts.
func (m *Memory) Book(_ context.Context, slot Slot, contact ContactInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open := m.open[slot.ID]; !open {
		return ErrConflict
	}
	delete(m.open, slot.ID)
	m.booked[slot.ID] = contact
	return nil
}

// Cancel releases every booking held under the given caller name.
func (m *Memory) Cancel(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for id, c := range m.booked {
		if strings.EqualFold(c.Name, name) {
			delete(m.booked, id)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("slots: no booking under %q", name)
	}
	return nil
}

func matchesPreference(s Slot, preference string) bool {
	switch preference {
	case "", "indifferent":
		return true
	case "matin":
		return s.Start.Hour() < 12
	case "apres-midi":
		return s.Start.Hour() >= 12 && s.Start.Hour() < 18
	case "soir":
		return s.Start.Hour() >= 17
	}
	return true
}

// DemoSlots builds a deterministic seed for development deployments.
func DemoSlots(from time.Time, days int) []Slot {
	var out []Slot
	hours := []int{9, 10, 14, 16}
	for d := 1; d <= days; d++ {
		day := from.AddDate(0, 0, d)
		if day.Weekday() == time.Sunday {
			continue
		}
		for _, h := range hours {
			start := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, day.Location())
			out = append(out, Slot{
				ID:         fmt.Sprintf("demo-%s-%02dh", start.Format("2006-01-02"), h),
				Start:      start,
				End:        start.Add(30 * time.Minute),
				Label:      start.Format("02/01 à 15h04"),
				VocalLabel: frenchVocalLabel(start),
				Weekday:    frenchWeekday(start.Weekday()),
				Source:     "memory",
			})
		}
	}
	return out
}

var frenchDays = map[time.Weekday]string{
	time.Monday:    "lundi",
	time.Tuesday:   "mardi",
	time.Wednesday: "mercredi",
	time.Thursday:  "jeudi",
	time.Friday:    "vendredi",
	time.Saturday:  "samedi",
	time.Sunday:    "dimanche",
}

func frenchWeekday(d time.Weekday) string {
	return frenchDays[d]
}

func frenchVocalLabel(t time.Time) string {
	if t.Minute() == 0 {
		return fmt.Sprintf("%s %d à %d heures", frenchWeekday(t.Weekday()), t.Day(), t.Hour())
	}
	return fmt.Sprintf("%s %d à %d heures %02d", frenchWeekday(t.Weekday()), t.Day(), t.Hour(), t.Minute())
}
