// Package playback is the session state machine. Step is a pure function
// from session, playlist and event to the next session and a player
// instruction; all side effects live with the caller.
package playback

import "soapbox/internal/playlist"

// State is a session's playback state.
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// EventType identifies a listener request or a platform callback.
type EventType string

const (
	// Listener requests.
	EventPlay     EventType = "play"
	EventPause    EventType = "pause"
	EventResume   EventType = "resume"
	EventNext     EventType = "next"
	EventPrevious EventType = "previous"
	EventStop     EventType = "stop"

	// Platform callbacks.
	EventStarted          EventType = "started"
	EventStalled          EventType = "stalled"
	EventFinishedItem     EventType = "finished_item"
	EventFinishedPlaylist EventType = "finished_playlist"
)

// Event is one input to the machine. Offset and PositionSeconds carry the
// platform's report of what was playing and where.
type Event struct {
	Type            EventType
	Offset          int
	PositionSeconds int
}

// Action tells the voice platform's audio player what to do.
type Action string

const (
	ActionNone Action = "none"
	ActionPlay Action = "play"
	ActionStop Action = "stop"
)

// Instruction is the machine's output for one step. StallExceeded is set
// exactly once, on the step that gives up on a stalling stream.
type Instruction struct {
	Action          Action
	Item            playlist.Item
	PositionSeconds int
	Speech          string
	StallExceeded   bool
}

// Session is the per-listener cursor. CurrentOffset is -1 when no item has
// been selected yet.
type Session struct {
	State           State
	CurrentOffset   int
	PositionSeconds int
	StallCount      int
}

// NewSession returns an idle session positioned before the playlist.
func NewSession() Session {
	return Session{State: StateIdle, CurrentOffset: -1}
}

const (
	speechNoEpisodes   = "There are no episodes available right now. Please check back later."
	speechNoNext       = "There are no more episodes."
	speechNoPrevious   = "You are already at the first episode."
	speechAllListened  = "You have listened to every available episode."
	speechCannotStream = "I am having trouble streaming this episode. Please try again later."
)

// Machine holds the one tunable the transitions depend on.
type Machine struct {
	// StallRetryLimit is how many consecutive stalls of one item are
	// retried before the session gives up. It counts retries issued, not
	// stall events, so a limit of N tolerates N+1 stalls of the same item.
	StallRetryLimit int
}

// Step applies ev to sess against pl and returns the successor session and
// the instruction for the player. sess is never mutated.
func (m Machine) Step(sess Session, pl *playlist.Playlist, ev Event) (Session, Instruction) {
	switch ev.Type {
	case EventPlay:
		return m.play(sess, pl)
	case EventPause:
		return m.pause(sess, ev)
	case EventResume:
		return m.resume(sess, pl)
	case EventNext:
		return m.skip(sess, pl, 1)
	case EventPrevious:
		return m.skip(sess, pl, -1)
	case EventStop:
		return NewSession(), Instruction{Action: ActionStop}
	case EventStarted:
		return m.started(sess, ev)
	case EventStalled:
		return m.stalled(sess, pl, ev)
	case EventFinishedItem:
		return m.finishedItem(sess, pl)
	case EventFinishedPlaylist:
		sess.State = StateFinished
		return sess, Instruction{Action: ActionNone}
	default:
		return sess, Instruction{Action: ActionNone}
	}
}

func (m Machine) play(sess Session, pl *playlist.Playlist) (Session, Instruction) {
	if pl.Len() == 0 {
		return NewSession(), Instruction{Action: ActionNone, Speech: speechNoEpisodes}
	}
	if sess.State == StatePaused {
		return m.resume(sess, pl)
	}
	item, _ := pl.At(0)
	next := Session{State: StatePlaying, CurrentOffset: 0}
	return next, Instruction{Action: ActionPlay, Item: item}
}

func (m Machine) pause(sess Session, ev Event) (Session, Instruction) {
	if sess.State != StatePlaying {
		return sess, Instruction{Action: ActionNone}
	}
	sess.State = StatePaused
	sess.PositionSeconds = ev.PositionSeconds
	return sess, Instruction{Action: ActionStop}
}

func (m Machine) resume(sess Session, pl *playlist.Playlist) (Session, Instruction) {
	if sess.State != StatePaused {
		return m.play(sess, pl)
	}
	item, ok := pl.At(sess.CurrentOffset)
	if !ok {
		// The playlist shrank underneath the pause. Start over.
		return m.play(NewSession(), pl)
	}
	next := sess
	next.State = StatePlaying
	return next, Instruction{Action: ActionPlay, Item: item, PositionSeconds: sess.PositionSeconds}
}

// skip moves the cursor by delta, clamped to the playlist's ends. Stepping
// past an end leaves the session unchanged and answers with speech only.
func (m Machine) skip(sess Session, pl *playlist.Playlist, delta int) (Session, Instruction) {
	if pl.Len() == 0 {
		return sess, Instruction{Action: ActionNone, Speech: speechNoEpisodes}
	}
	if sess.CurrentOffset < 0 {
		return m.play(sess, pl)
	}
	target := sess.CurrentOffset + delta
	if target > pl.Last() {
		return sess, Instruction{Action: ActionNone, Speech: speechNoNext}
	}
	if target < 0 {
		return sess, Instruction{Action: ActionNone, Speech: speechNoPrevious}
	}
	item, _ := pl.At(target)
	next := sess
	next.State = StatePlaying
	next.CurrentOffset = target
	next.PositionSeconds = 0
	next.StallCount = 0
	return next, Instruction{Action: ActionPlay, Item: item}
}

// started confirms the platform began playing an item. It is the only
// event that clears the stall count.
func (m Machine) started(sess Session, ev Event) (Session, Instruction) {
	sess.State = StatePlaying
	sess.CurrentOffset = ev.Offset
	sess.PositionSeconds = ev.PositionSeconds
	sess.StallCount = 0
	return sess, Instruction{Action: ActionNone}
}

func (m Machine) stalled(sess Session, pl *playlist.Playlist, ev Event) (Session, Instruction) {
	sess.StallCount++
	sess.PositionSeconds = ev.PositionSeconds
	if sess.StallCount > m.StallRetryLimit {
		sess.State = StateFinished
		sess.StallCount = 0
		return sess, Instruction{Action: ActionStop, Speech: speechCannotStream, StallExceeded: true}
	}
	item, ok := pl.At(sess.CurrentOffset)
	if !ok {
		sess.State = StateFinished
		return sess, Instruction{Action: ActionStop}
	}
	return sess, Instruction{Action: ActionPlay, Item: item, PositionSeconds: ev.PositionSeconds}
}

func (m Machine) finishedItem(sess Session, pl *playlist.Playlist) (Session, Instruction) {
	target := sess.CurrentOffset + 1
	if target > pl.Last() {
		sess.State = StateFinished
		sess.PositionSeconds = 0
		return sess, Instruction{Action: ActionNone, Speech: speechAllListened}
	}
	item, _ := pl.At(target)
	next := sess
	next.State = StatePlaying
	next.CurrentOffset = target
	next.PositionSeconds = 0
	next.StallCount = 0
	return next, Instruction{Action: ActionPlay, Item: item}
}
