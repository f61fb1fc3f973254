package playback

import (
	"fmt"
	"testing"

	"soapbox/internal/playlist"
)

func testPlaylist(n int) *playlist.Playlist {
	items := make([]playlist.Item, n)
	for i := range items {
		items[i] = playlist.Item{
			EpisodeID:       fmt.Sprintf("ep-%03d", i+1),
			StorageKey:      fmt.Sprintf("episodes/ep-%03d.mp3", i+1),
			Title:           fmt.Sprintf("Episode %d", i+1),
			DurationSeconds: 600,
		}
	}
	return playlist.FromItems(items)
}

func TestPlayFromIdle(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(3)

	sess, instr := m.Step(NewSession(), pl, Event{Type: EventPlay})
	if sess.State != StatePlaying || sess.CurrentOffset != 0 {
		t.Fatalf("unexpected session %+v", sess)
	}
	if instr.Action != ActionPlay || instr.Item.EpisodeID != "ep-001" {
		t.Fatalf("unexpected instruction %+v", instr)
	}
	if instr.PositionSeconds != 0 {
		t.Fatalf("fresh play should start at zero, got %d", instr.PositionSeconds)
	}
}

func TestPlayOnEmptyPlaylist(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	sess, instr := m.Step(NewSession(), playlist.FromItems(nil), Event{Type: EventPlay})
	if sess.State != StateIdle {
		t.Fatalf("session should stay idle, got %+v", sess)
	}
	if instr.Action != ActionNone || instr.Speech == "" {
		t.Fatalf("expected spoken refusal, got %+v", instr)
	}
}

func TestPauseAndResumeKeepPosition(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(3)

	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})
	sess, instr := m.Step(sess, pl, Event{Type: EventPause, PositionSeconds: 137})
	if sess.State != StatePaused || sess.PositionSeconds != 137 {
		t.Fatalf("unexpected paused session %+v", sess)
	}
	if instr.Action != ActionStop {
		t.Fatalf("pause should stop the player, got %+v", instr)
	}

	sess, instr = m.Step(sess, pl, Event{Type: EventResume})
	if sess.State != StatePlaying {
		t.Fatalf("unexpected resumed session %+v", sess)
	}
	if instr.Action != ActionPlay || instr.PositionSeconds != 137 {
		t.Fatalf("resume should continue at the pause offset, got %+v", instr)
	}
	if instr.Item.EpisodeID != "ep-001" {
		t.Fatalf("resume should replay the same item, got %q", instr.Item.EpisodeID)
	}
}

func TestPauseWhenNotPlayingIsNoop(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(1)
	sess, instr := m.Step(NewSession(), pl, Event{Type: EventPause, PositionSeconds: 5})
	if sess != NewSession() {
		t.Fatalf("session changed: %+v", sess)
	}
	if instr.Action != ActionNone {
		t.Fatalf("unexpected instruction %+v", instr)
	}
}

func TestResumeFromIdleStartsPlayback(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)
	sess, instr := m.Step(NewSession(), pl, Event{Type: EventResume})
	if sess.State != StatePlaying || instr.Action != ActionPlay {
		t.Fatalf("resume from idle should play, got %+v / %+v", sess, instr)
	}
}

func TestNextAndPreviousClamp(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)

	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})

	sess, instr := m.Step(sess, pl, Event{Type: EventPrevious})
	if sess.CurrentOffset != 0 {
		t.Fatalf("previous at start must not move, got %+v", sess)
	}
	if instr.Speech == "" {
		t.Fatal("previous at start should speak")
	}

	sess, instr = m.Step(sess, pl, Event{Type: EventNext})
	if sess.CurrentOffset != 1 || instr.Item.EpisodeID != "ep-002" {
		t.Fatalf("next should advance, got %+v / %+v", sess, instr)
	}

	sess, instr = m.Step(sess, pl, Event{Type: EventNext})
	if sess.CurrentOffset != 1 {
		t.Fatalf("next at end must not move, got %+v", sess)
	}
	if instr.Speech == "" || instr.Action != ActionNone {
		t.Fatalf("next at end should speak only, got %+v", instr)
	}
}

func TestStopResetsSession(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)
	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})
	sess, instr := m.Step(sess, pl, Event{Type: EventStop})
	if sess != NewSession() {
		t.Fatalf("stop should reset the session, got %+v", sess)
	}
	if instr.Action != ActionStop {
		t.Fatalf("unexpected instruction %+v", instr)
	}
}

func TestFinishedItemAdvancesThenFinishes(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)

	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})
	sess, instr := m.Step(sess, pl, Event{Type: EventFinishedItem})
	if sess.CurrentOffset != 1 || instr.Item.EpisodeID != "ep-002" {
		t.Fatalf("expected advance to ep-002, got %+v / %+v", sess, instr)
	}

	sess, instr = m.Step(sess, pl, Event{Type: EventFinishedItem})
	if sess.State != StateFinished {
		t.Fatalf("expected finished state, got %+v", sess)
	}
	if instr.Action != ActionNone || instr.Speech == "" {
		t.Fatalf("finishing the playlist should speak, got %+v", instr)
	}
}

func TestStallsRetryThenGiveUpExactlyOnce(t *testing.T) {
	const limit = 3
	m := Machine{StallRetryLimit: limit}
	pl := testPlaylist(1)

	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})
	for i := 1; i <= limit; i++ {
		var instr Instruction
		sess, instr = m.Step(sess, pl, Event{Type: EventStalled, PositionSeconds: 42})
		if instr.Action != ActionPlay {
			t.Fatalf("stall %d should retry, got %+v", i, instr)
		}
		if instr.StallExceeded {
			t.Fatalf("stall %d reported exceeded too early", i)
		}
		if instr.PositionSeconds != 42 {
			t.Fatalf("retry should resume at the stall position, got %d", instr.PositionSeconds)
		}
		if sess.StallCount != i {
			t.Fatalf("stall count = %d after %d stalls", sess.StallCount, i)
		}
	}

	sess, instr := m.Step(sess, pl, Event{Type: EventStalled, PositionSeconds: 42})
	if !instr.StallExceeded {
		t.Fatal("expected stall limit report")
	}
	if sess.State != StateFinished || instr.Action != ActionStop {
		t.Fatalf("exceeding the limit should finish the session, got %+v / %+v", sess, instr)
	}

	// Once reported, repeated events never report it again.
	_, instr = m.Step(sess, pl, Event{Type: EventFinishedPlaylist})
	if instr.StallExceeded {
		t.Fatal("stall report must fire exactly once")
	}
}

func TestStartedResetsStallCount(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(1)

	sess, _ := m.Step(NewSession(), pl, Event{Type: EventPlay})
	sess, _ = m.Step(sess, pl, Event{Type: EventStalled})
	sess, _ = m.Step(sess, pl, Event{Type: EventStalled})
	sess, _ = m.Step(sess, pl, Event{Type: EventStarted, Offset: 0, PositionSeconds: 10})
	if sess.StallCount != 0 {
		t.Fatalf("started should clear stall count, got %d", sess.StallCount)
	}
	if sess.State != StatePlaying || sess.PositionSeconds != 10 {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestPlayAfterFinishedRestarts(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)

	sess := Session{State: StateFinished, CurrentOffset: 1}
	sess, instr := m.Step(sess, pl, Event{Type: EventPlay})
	if sess.State != StatePlaying || sess.CurrentOffset != 0 {
		t.Fatalf("play after finish should restart, got %+v", sess)
	}
	if instr.Item.EpisodeID != "ep-001" {
		t.Fatalf("unexpected item %+v", instr.Item)
	}
}

func TestStepNeverMutatesInput(t *testing.T) {
	m := Machine{StallRetryLimit: 3}
	pl := testPlaylist(2)
	in := Session{State: StatePlaying, CurrentOffset: 0, PositionSeconds: 7, StallCount: 1}
	snapshot := in

	for _, ev := range []Event{
		{Type: EventPause, PositionSeconds: 9},
		{Type: EventNext},
		{Type: EventStalled},
		{Type: EventFinishedItem},
		{Type: EventStop},
	} {
		m.Step(in, pl, ev)
		if in != snapshot {
			t.Fatalf("event %s mutated the input session: %+v", ev.Type, in)
		}
	}
}
