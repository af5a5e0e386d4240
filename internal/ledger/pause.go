package ledger

import "time"

// Pause blocks monetary and licensing mutators until Unpause. Only
// DEFAULT_ADMIN accounts may toggle. Pausing an already paused ledger
// succeeds without a second event.
func (l *Ledger) Pause(actor string) error {
	return l.run(func(now time.Time) error {
		if err := l.authorize(actor, OpPause); err != nil {
			return err
		}
		if l.paused {
			return nil
		}
		l.paused = true
		l.emit(EventPaused, actor, "", nil, now)
		return nil
	})
}

// Unpause restores monetary and licensing mutators.
func (l *Ledger) Unpause(actor string) error {
	return l.run(func(now time.Time) error {
		if err := l.authorize(actor, OpUnpause); err != nil {
			return err
		}
		if !l.paused {
			return nil
		}
		l.paused = false
		l.emit(EventUnpaused, actor, "", nil, now)
		return nil
	})
}

// IsPaused reports the gate. Reads are never blocked by pause.
func (l *Ledger) IsPaused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}
