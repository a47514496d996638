// internal/httpserver/server.go
//
// HTTP server wiring for the flip card backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/cards".
//   - Game endpoints: POST /game/new (normal or daily deal), GET /game, POST /game/reveal,
//     POST /game/reset, POST /game/dismiss.
//
// Notes:
//   - A player's session is named by a signed token carried in a cookie
//     (or an Authorization: Bearer header for non-browser clients).
//   - Pair evaluation happens on a timer after /game/reveal returns; clients
//     poll GET /game to see the outcome and collect queued sounds.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/board"
	"github.com/robalobadob/flipcard/internal/daily"
	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
	"github.com/robalobadob/flipcard/internal/session"
	"github.com/robalobadob/flipcard/internal/store"
)

// Options configures cookies and CORS.
type Options struct {
	Secret     string
	SessionTTL time.Duration
	Origin     string
	Secure     bool
	DailySalt  string
	CookieName string
}

// Server bundles router, session store and session factory.
type Server struct {
	r       *chi.Mux
	store   store.Store
	factory *session.Factory
	opts    Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, f *session.Factory, opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "dev_secret_change_me"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.DailySalt == "" {
		opts.DailySalt = "local_dev_salt"
	}
	if opts.CookieName == "" {
		opts.CookieName = "flipcard_session"
	}
	if opts.Origin == "" {
		opts.Origin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), store: st, factory: f, opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog(log.Logger))           // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(opts.Origin))               // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"flipcard-go","endpoints":["/health","/cards","POST /game/new","GET /game","POST /game/reveal","POST /game/reset","POST /game/dismiss"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/cards", s.handleCards)

	s.r.Post("/game/new", s.handleNewGame)
	s.r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/game", s.handleView)
		r.Post("/game/reveal", s.handleReveal)
		r.Post("/game/reset", s.handleReset)
		r.Post("/game/dismiss", s.handleDismiss)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start serves HTTP on addr until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the router (useful for tests and custom http.Server setups).
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog attaches l to each request context and logs method, path,
// status and duration once the handler returns.
func accessLog(l zerolog.Logger) func(http.Handler) http.Handler {
	withLogger := hlog.NewHandler(l)
	done := hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("req_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})
	return func(next http.Handler) http.Handler {
		return withLogger(done(next))
	}
}

// ------------------------------ GAME ---------------------------------------

// viewRes is the board as sent to clients.
type viewRes struct {
	SessionID  string           `json:"sessionId"`
	Generation uint64           `json:"generation"`
	Phase      game.Phase       `json:"phase"`
	Cards      []board.CardView `json:"cards"`
	Score      int              `json:"score"`
	Moves      int              `json:"moves"`
	Matched    int              `json:"matched"`
	TotalPairs int              `json:"totalPairs"`
	Locked     bool             `json:"locked"`
	Overlay    board.Overlay    `json:"overlay"`
	Sounds     []string         `json:"sounds"`
}

func viewOf(sess *session.Session) viewRes {
	st := sess.Ctrl.State()
	v := sess.Board.View()
	return viewRes{
		SessionID:  sess.ID,
		Generation: st.Generation,
		Phase:      st.Phase,
		Cards:      v.Cards,
		Score:      v.Score,
		Moves:      v.Moves,
		Matched:    st.Matched,
		TotalPairs: st.TotalPairs,
		Locked:     st.Locked,
		Overlay:    v.Overlay,
		Sounds:     sess.Sounds.Drain(),
	}
}

// handleCards lists the card table. Faces are public; only their positions
// on a board are secret.
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	defs := s.factory.Defs
	if defs == nil {
		defs = []deck.Definition{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"cards": defs})
}

// newGameReq is the optional body of POST /game/new.
type newGameReq struct {
	Mode string `json:"mode"` // "normal" (default) | "daily"
}

type newGameRes struct {
	viewRes
	Token string `json:"token"`
	Daily string `json:"daily,omitempty"` // date of the daily deal
}

// handleNewGame creates a session with a dealt round and issues its cookie.
// Daily games share one layout per UTC date; "play again" on a daily session
// deals a fresh random board.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	var (
		sess *session.Session
		date string
	)
	switch req.Mode {
	case "", "normal":
		sess = s.factory.New()
	case "daily":
		now := time.Now()
		date = daily.DateKey(now)
		sess = s.factory.NewSeeded(daily.Seed(now, s.opts.DailySalt))
	default:
		writeError(w, http.StatusBadRequest, "bad_mode")
		return
	}

	if err := s.store.Save(r.Context(), sess); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.signSession(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	hlog.FromRequest(r).Info().Str("session", sess.ID).Str("mode", req.Mode).Msg("new game")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(newGameRes{viewRes: viewOf(sess), Token: tok, Daily: date})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(viewOf(currentSession(r)))
}

type revealReq struct {
	CardID *int `json:"cardId"`
}

// handleReveal forwards a card click to the board. Rejected reveals leave the
// round untouched and answer 409 (404 for a card that is not on the board).
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req revealReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess := currentSession(r)
	if err := sess.Board.Select(*req.CardID); err != nil {
		switch {
		case errors.Is(err, game.ErrUnknownCard):
			writeError(w, http.StatusNotFound, "unknown_card")
		case errors.Is(err, game.ErrLocked):
			writeError(w, http.StatusConflict, "locked")
		case errors.Is(err, game.ErrAlreadyRevealed):
			writeError(w, http.StatusConflict, "already_revealed")
		default:
			writeError(w, http.StatusConflict, "not_playable")
		}
		return
	}
	s.save(w, r, sess)
}

// handleReset deals a new round on the caller's session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.Ctrl.NewRound()
	s.save(w, r, sess)
}

// handleDismiss closes the win overlay; the finished board stays on screen.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.Board.Dismiss()
	s.save(w, r, sess)
}

// save touches and persists the session, then writes its view.
func (s *Server) save(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Touch()
	if err := s.store.Save(r.Context(), sess); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session", sess.ID).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(sess))
}

// writeError writes {"error": code} with status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
