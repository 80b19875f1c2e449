package sound

import (
	"io"
	"os"
)

// Player emits the audible cue. Implementations must be cheap to call;
// the gate invokes them synchronously from the update loop.
type Player interface {
	Play() error
}

// BellPlayer rings the terminal bell by writing BEL to its writer.
type BellPlayer struct {
	W io.Writer
}

// Play writes the bell character. The terminal decides whether that
// produces sound, a visual flash, or nothing.
func (p BellPlayer) Play() error {
	w := p.W
	if w == nil {
		w = os.Stderr
	}
	_, err := w.Write([]byte{'\a'})
	return err
}

// Gate plays a one-shot cue when new notifications arrive, but only after
// the user's first key press has unlocked it. Audio output without a
// prior gesture is suppressed, and every playback failure is swallowed:
// sound is a non-critical enhancement.
type Gate struct {
	player   Player
	enabled  bool
	unlocked bool
}

// NewGate creates a gate over the given player. A nil player disables
// sound entirely, as does enabled=false.
func NewGate(player Player, enabled bool) *Gate {
	return &Gate{
		player:  player,
		enabled: enabled,
	}
}

// Unlock records that a user gesture has occurred. Idempotent; called by
// the UI on the first key press.
func (g *Gate) Unlock() {
	g.unlocked = true
}

// Unlocked reports whether a user gesture has been observed.
func (g *Gate) Unlocked() bool {
	return g.unlocked
}

// Chime plays the cue once. No-op before the gate is unlocked, when
// sound is disabled, or when no player is available. Failures are
// ignored.
func (g *Gate) Chime() {
	if !g.enabled || !g.unlocked || g.player == nil {
		return
	}
	_ = g.player.Play()
}
