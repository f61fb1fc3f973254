// Package skill translates voice-platform intents and audio player
// callbacks into playback steps and spoken responses.
package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"soapbox/internal/blobstore"
	"soapbox/internal/catalog"
	"soapbox/internal/config"
	"soapbox/internal/logging"
	"soapbox/internal/playback"
	"soapbox/internal/playlist"
	"soapbox/internal/search"
	"soapbox/internal/services"
)

// Directive tells the platform's audio player what to do after a response.
type Directive string

const (
	DirectiveNone Directive = "none"
	DirectivePlay Directive = "play"
	DirectiveStop Directive = "stop"
)

// Response is the assistant's answer to one request.
type Response struct {
	Speech          string
	Card            string
	Directive       Directive
	StreamURL       string
	Token           string
	PositionSeconds int
	EndSession      bool
}

// QuestionProvider supplies the question of the week.
type QuestionProvider interface {
	Current(ctx context.Context) (string, error)
	Speak(question string) string
}

// SearchProvider finds cataloged episodes matching a spoken term.
type SearchProvider interface {
	Search(ctx context.Context, term string) ([]search.Result, error)
}

type sessionState struct {
	session  playback.Session
	playlist *playlist.Playlist
}

// Handler owns per-session playback state. Safe for concurrent requests.
type Handler struct {
	cfg      *config.Config
	store    *catalog.Store
	blob     blobstore.Store
	question QuestionProvider
	search   SearchProvider
	machine  playback.Machine
	order    playlist.Order
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewHandler(cfg *config.Config, store *catalog.Store, blob blobstore.Store, q QuestionProvider, s SearchProvider, logger *slog.Logger) (*Handler, error) {
	order, err := playlist.ParseOrder(cfg.Playback.Order)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		blob:     blob,
		question: q,
		search:   s,
		machine:  playback.Machine{StallRetryLimit: cfg.Playback.StallRetryLimit},
		order:    order,
		logger:   logging.NewComponentLogger(logger, "skill"),
		sessions: make(map[string]*sessionState),
	}, nil
}

func (h *Handler) programName() string {
	if h.cfg.Speech.ProgramName != "" {
		return h.cfg.Speech.ProgramName
	}
	return "the program"
}

// Launch greets the listener and leaves the session open for a command.
func (h *Handler) Launch(ctx context.Context, sessionID string) Response {
	speech := fmt.Sprintf(
		"Welcome to %s. You can say play to hear the latest episodes, ask for this week's question, or say search followed by a topic.",
		h.programName())
	return Response{Speech: speech, Card: speech}
}

// Help describes what the listener can ask for.
func (h *Handler) Help(ctx context.Context, sessionID string) Response {
	speech := fmt.Sprintf(
		"You can say play to listen to %s, say next or previous to move between episodes, ask what this week's question is, or say search followed by a topic. Say stop when you are done.",
		h.programName())
	return Response{Speech: speech}
}

// Fallback answers an utterance the skill did not understand.
func (h *Handler) Fallback(ctx context.Context, sessionID string) Response {
	return Response{Speech: "Sorry, I didn't catch that. Say help to hear what you can ask for."}
}

// Question speaks the question of the week.
func (h *Handler) Question(ctx context.Context, sessionID string) Response {
	text, err := h.question.Current(ctx)
	if err != nil {
		h.logger.Warn("question lookup failed", logging.Error(err))
		return Response{Speech: "I couldn't reach this week's question right now. Please try again later."}
	}
	spoken := h.question.Speak(text)
	return Response{Speech: spoken, Card: text}
}

// Intent routes a listener request to the playback machine.
func (h *Handler) Intent(ctx context.Context, sessionID string, ev playback.EventType) (Response, error) {
	switch ev {
	case playback.EventPlay, playback.EventPause, playback.EventResume,
		playback.EventNext, playback.EventPrevious, playback.EventStop:
	default:
		return Response{}, fmt.Errorf("unsupported intent %q", ev)
	}
	return h.step(ctx, sessionID, playback.Event{Type: ev})
}

// PlayerEvent applies an audio player callback. Callbacks carry the token
// the platform was playing and the playback position it reported.
func (h *Handler) PlayerEvent(ctx context.Context, sessionID string, ev playback.EventType, token string, positionSeconds int) (Response, error) {
	offset := offsetFromToken(token)
	return h.step(ctx, sessionID, playback.Event{Type: ev, Offset: offset, PositionSeconds: positionSeconds})
}

// Search finds episodes about term and starts playing the matches.
func (h *Handler) Search(ctx context.Context, sessionID, term string) (Response, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Response{Speech: "What topic should I search for?"}, nil
	}
	results, err := h.search.Search(ctx, term)
	if err != nil {
		if errors.Is(err, services.ErrUnavailable) {
			return Response{Speech: "I couldn't reach the episode search right now. Please try again later."}, nil
		}
		return Response{}, err
	}
	if len(results) == 0 {
		return Response{Speech: fmt.Sprintf("I didn't find any episodes about %s.", term)}, nil
	}

	items := make([]playlist.Item, 0, len(results))
	for _, result := range results {
		items = append(items, playlist.Item{
			EpisodeID:       result.Episode.ID,
			StorageKey:      result.Episode.StorageKey,
			Title:           result.Episode.Title,
			DurationSeconds: result.Episode.DurationSeconds,
		})
	}
	pl := playlist.FromItems(items)

	h.mu.Lock()
	state := h.ensureSessionLocked(sessionID)
	state.playlist = pl
	state.session = playback.NewSession()
	session, instr := h.machine.Step(state.session, state.playlist, playback.Event{Type: playback.EventPlay})
	state.session = session
	h.mu.Unlock()

	resp := h.respond(instr)
	resp.Speech = fmt.Sprintf("I found %d episodes about %s. Playing the first one now.", len(results), term)
	if len(results) == 1 {
		resp.Speech = fmt.Sprintf("I found one episode about %s. Playing it now.", term)
	}
	return resp, nil
}

func (h *Handler) step(ctx context.Context, sessionID string, ev playback.Event) (Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.ensureSessionLocked(sessionID)
	if err := h.ensurePlaylistLocked(ctx, state, ev); err != nil {
		return Response{}, err
	}

	session, instr := h.machine.Step(state.session, state.playlist, ev)
	state.session = session
	if instr.StallExceeded {
		h.logger.Warn("giving up on stalled stream",
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldEpisodeID, tokenEpisode(state, ev)))
	}
	return h.respond(instr), nil
}

// ensurePlaylistLocked builds the session's playlist snapshot lazily and
// rebuilds it when a finished session asks to play again, so episodes
// synced since the last run become audible.
func (h *Handler) ensurePlaylistLocked(ctx context.Context, state *sessionState, ev playback.Event) error {
	needsBuild := state.playlist == nil
	if ev.Type == playback.EventPlay && state.session.State == playback.StateFinished {
		needsBuild = true
	}
	if !needsBuild {
		return nil
	}
	pl, err := playlist.Build(ctx, h.store, h.order)
	if err != nil {
		return err
	}
	state.playlist = pl
	return nil
}

func (h *Handler) ensureSessionLocked(sessionID string) *sessionState {
	state, ok := h.sessions[sessionID]
	if !ok {
		state = &sessionState{session: playback.NewSession()}
		h.sessions[sessionID] = state
	}
	return state
}

// EndSession drops a listener's session state.
func (h *Handler) EndSession(sessionID string) {
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
}

func (h *Handler) respond(instr playback.Instruction) Response {
	resp := Response{Speech: instr.Speech, Directive: DirectiveNone}
	switch instr.Action {
	case playback.ActionPlay:
		resp.Directive = DirectivePlay
		resp.StreamURL = h.blob.PlayableURL(instr.Item.StorageKey)
		resp.Token = makeToken(instr.Item)
		resp.PositionSeconds = instr.PositionSeconds
		resp.EndSession = true
	case playback.ActionStop:
		resp.Directive = DirectiveStop
		resp.EndSession = true
	}
	return resp
}

// makeToken encodes the playing item so platform callbacks can report
// which offset they concern.
func makeToken(item playlist.Item) string {
	return fmt.Sprintf("%s:%d", item.EpisodeID, item.Offset)
}

func offsetFromToken(token string) int {
	idx := strings.LastIndex(token, ":")
	if idx < 0 {
		return -1
	}
	offset, err := strconv.Atoi(token[idx+1:])
	if err != nil {
		return -1
	}
	return offset
}

func tokenEpisode(state *sessionState, ev playback.Event) string {
	item, ok := state.playlist.At(ev.Offset)
	if !ok {
		return ""
	}
	return item.EpisodeID
}
