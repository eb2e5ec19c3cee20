package director

// Pauser freezes and resumes the physics engine.
type Pauser interface {
	SetPaused(paused bool)
}

// PauseManager holds the engine paused for a fixed number of ticks at the
// start of each scene, so that assets are loaded before the first capture.
type PauseManager struct {
	engine    Pauser
	duration  int
	remaining int
}

// NewPauseManager creates a pause manager pausing for duration ticks.
func NewPauseManager(engine Pauser, duration int) *PauseManager {
	if duration < 0 {
		duration = 0
	}
	return &PauseManager{engine: engine, duration: duration}
}

// Tick resumes the engine once the pause is over, then consumes one tick of
// the pause.
func (p *PauseManager) Tick() {
	if p.remaining == 0 {
		p.engine.SetPaused(false)
	}
	if p.IsPaused() {
		p.remaining--
	}
}

func (p *PauseManager) IsPaused() bool {
	return p.remaining > 0
}

// Remaining returns the number of paused ticks left.
func (p *PauseManager) Remaining() int {
	return p.remaining
}

// Pause freezes the engine for the configured duration.
func (p *PauseManager) Pause() {
	p.remaining = p.duration
	p.engine.SetPaused(true)
}
