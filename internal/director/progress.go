package director

import (
	"time"
)

// Progress is a snapshot of the director, served by the API and published
// over MQTT.
type Progress struct {
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Scene     string         `json:"scene,omitempty"`
	Category  string         `json:"category,omitempty"`
	Run       int            `json:"run"`
	State     string         `json:"state,omitempty"`
	Ticker    int            `json:"ticker"`
	MaxTick   int            `json:"max_tick"`
	Paused    bool           `json:"paused"`
	Restarted int            `json:"restarted"`
	Captures  int            `json:"captures"`
	Counters  map[string]int `json:"counters"`
	Elapsed   float64        `json:"elapsed_s"`
	Done      bool           `json:"done"`
}

// Progress returns a snapshot of the schedule.
func (d *Director) Progress() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := Progress{
		Index:     d.index,
		Total:     len(d.scenes),
		Ticker:    d.ticker,
		MaxTick:   d.maxTick,
		Paused:    d.pauser.IsPaused(),
		Restarted: d.restarted,
		Captures:  d.captures,
		Counters:  make(map[string]int, len(d.counter)),
		Elapsed:   time.Since(d.startedAt).Seconds(),
		Done:      d.done,
	}
	for c, n := range d.counter {
		p.Counters[string(c)] = n
	}
	if d.index < len(d.scenes) {
		s := d.current()
		p.Scene = s.Name()
		p.Category = string(s.Descriptor().Category)
		p.Run = s.Run()
		p.State = string(s.State())
	}
	return p
}

// Fraction is the share of scenes rendered, in [0,1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Index) / float64(p.Total)
}
