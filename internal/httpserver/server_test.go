package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
	"github.com/robalobadob/flipcard/internal/session"
	"github.com/robalobadob/flipcard/internal/store"
)

type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (m *manualScheduler) AfterFunc(_ time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, f)
}

func (m *manualScheduler) RunAll() {
	for {
		m.mu.Lock()
		due := m.pending
		m.pending = nil
		m.mu.Unlock()
		if len(due) == 0 {
			return
		}
		for _, f := range due {
			f()
		}
	}
}

type testServer struct {
	srv   *Server
	store store.Store
	sched *manualScheduler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	defs, err := deck.Load("")
	if err != nil {
		t.Fatal(err)
	}
	sched := &manualScheduler{}
	st := store.NewMemoryStore()
	f := &session.Factory{Defs: defs, Seed: 7, Scheduler: sched}
	return &testServer{
		srv:   New(st, f, Options{Secret: "test-secret", SessionTTL: time.Hour}),
		store: st,
		sched: sched,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) newGame(t *testing.T) newGameRes {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/game/new", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /game/new = %d %s", rec.Code, rec.Body)
	}
	var out newGameRes
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewRes {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var v viewRes
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func reveal(id int) map[string]int { return map[string]int{"cardId": id} }

func TestHealthAndCards(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("/health = %d %s", rec.Code, rec.Body)
	}

	rec := ts.do(t, http.MethodGet, "/cards", "", nil)
	var body struct {
		Cards []deck.Definition `json:"cards"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Cards) != 6 || body.Cards[0].Label != "Apel" {
		t.Fatalf("/cards = %+v", body.Cards)
	}

	if rec := ts.do(t, http.MethodGet, "/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path = %d", rec.Code)
	}
}

func TestNewGameIssuesCookie(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/game/new", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "flipcard_session" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or not HttpOnly: %+v", cookie)
	}

	var out newGameRes
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if len(out.Cards) != 12 || out.Phase != game.PhaseIdle || out.TotalPairs != 6 {
		t.Fatalf("new game view %+v", out.viewRes)
	}
	for _, c := range out.Cards {
		if c.Label != "" || c.State != game.CardHidden {
			t.Fatalf("card %d visible on a fresh board", c.ID)
		}
	}

	// the cookie alone is enough to read the board back
	req := httptest.NewRequest(http.MethodGet, "/game", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	if v := decodeView(t, rec); v.SessionID != out.SessionID {
		t.Fatalf("cookie resolved session %s, want %s", v.SessionID, out.SessionID)
	}
}

func TestSessionRequired(t *testing.T) {
	ts := newTestServer(t)
	if rec := ts.do(t, http.MethodGet, "/game", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/game", "not.a.token", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", rec.Code)
	}

	g := ts.newGame(t)
	other := New(ts.store, ts.srv.factory, Options{Secret: "other-secret"})
	req := httptest.NewRequest(http.MethodGet, "/game", nil)
	req.Header.Set("Authorization", "Bearer "+g.Token)
	rec := httptest.NewRecorder()
	other.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("token signed with another secret = %d", rec.Code)
	}

	_ = ts.store.Delete(context.Background(), g.SessionID)
	if rec := ts.do(t, http.MethodGet, "/game", g.Token, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted session = %d", rec.Code)
	}
}

func TestRevealMatchFlow(t *testing.T) {
	ts := newTestServer(t)
	g := ts.newGame(t)

	v := decodeView(t, ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(0)))
	if v.Phase != game.PhaseOneRevealed {
		t.Fatalf("phase after first reveal = %s", v.Phase)
	}
	v = decodeView(t, ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(6)))
	if v.Phase != game.PhaseLocked || !v.Locked || v.Moves != 1 {
		t.Fatalf("after second reveal %+v", v)
	}
	for _, c := range v.Cards {
		if (c.ID == 0 || c.ID == 6) && c.Label != "Apel" {
			t.Fatalf("revealed card %d face = %q", c.ID, c.Label)
		}
	}

	rec := ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(1))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "locked") {
		t.Fatalf("reveal while locked = %d %s", rec.Code, rec.Body)
	}

	ts.sched.RunAll()

	v = decodeView(t, ts.do(t, http.MethodGet, "/game", g.Token, nil))
	if v.Score != 10 || v.Matched != 1 || v.Moves != 1 || v.Locked {
		t.Fatalf("after evaluation %+v", v)
	}
	if len(v.Sounds) != 3 || v.Sounds[0] != "apel-sound" || v.Sounds[2] != game.SoundMatch {
		t.Fatalf("sounds = %v", v.Sounds)
	}
	if v = decodeView(t, ts.do(t, http.MethodGet, "/game", g.Token, nil)); len(v.Sounds) != 0 {
		t.Fatalf("sounds not drained: %v", v.Sounds)
	}

	rec = ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(0))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "already_revealed") {
		t.Fatalf("reveal matched card = %d %s", rec.Code, rec.Body)
	}
}

func TestRevealMismatchFlow(t *testing.T) {
	ts := newTestServer(t)
	g := ts.newGame(t)

	ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(0))
	ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(1))
	ts.sched.RunAll()

	v := decodeView(t, ts.do(t, http.MethodGet, "/game", g.Token, nil))
	if v.Score != 0 || v.Moves != 1 || v.Matched != 0 {
		t.Fatalf("after mismatch %+v", v)
	}
	for _, c := range v.Cards {
		if c.State != game.CardHidden {
			t.Fatalf("card %d still %s", c.ID, c.State)
		}
	}
}

func TestRevealBadRequests(t *testing.T) {
	ts := newTestServer(t)
	g := ts.newGame(t)

	if rec := ts.do(t, http.MethodPost, "/game/reveal", g.Token, "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/game/reveal", g.Token, "{}"); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing cardId = %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(42)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown card = %d", rec.Code)
	}
}

func TestWinDismissAndReset(t *testing.T) {
	ts := newTestServer(t)
	g := ts.newGame(t)

	for k := 0; k < 6; k++ {
		ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(k))
		ts.do(t, http.MethodPost, "/game/reveal", g.Token, reveal(k+6))
		ts.sched.RunAll()
	}

	v := decodeView(t, ts.do(t, http.MethodGet, "/game", g.Token, nil))
	if v.Phase != game.PhaseWon || v.Score != 60 || v.Moves != 6 {
		t.Fatalf("final view %+v", v)
	}
	if !v.Overlay.Visible || v.Overlay.Score != 60 || v.Overlay.Moves != 6 {
		t.Fatalf("overlay %+v", v.Overlay)
	}
	wins := 0
	for _, s := range v.Sounds {
		if s == game.SoundWin {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("win sound queued %d times", wins)
	}

	v = decodeView(t, ts.do(t, http.MethodPost, "/game/dismiss", g.Token, nil))
	if v.Overlay.Visible || v.Phase != game.PhaseWon {
		t.Fatalf("after dismiss %+v", v)
	}

	v = decodeView(t, ts.do(t, http.MethodPost, "/game/reset", g.Token, nil))
	if v.Phase != game.PhaseIdle || v.Score != 0 || v.Moves != 0 || v.Matched != 0 || v.Generation != 2 {
		t.Fatalf("after reset %+v", v)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodOptions, "/game/reveal", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestDailyDealSharesLayout(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	var (
		decks  [][]deck.Card
		tokens []string
	)
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/game/new", "", map[string]string{"mode": "daily"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("daily new = %d %s", rec.Code, rec.Body)
		}
		var out newGameRes
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		if out.Daily == "" {
			t.Fatal("daily date missing")
		}
		sess, err := ts.store.Get(ctx, out.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		decks = append(decks, sess.Ctrl.Deck())
		tokens = append(tokens, out.Token)
	}
	if !slices.Equal(decks[0], decks[1]) {
		t.Fatal("two daily games on one day dealt different boards")
	}

	// play again on a daily session deals an ordinary board
	var reset [][]deck.Card
	for _, tok := range tokens {
		v := decodeView(t, ts.do(t, http.MethodPost, "/game/reset", tok, nil))
		sess, err := ts.store.Get(ctx, v.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		reset = append(reset, sess.Ctrl.Deck())
	}
	if slices.Equal(reset[0], reset[1]) {
		t.Fatal("daily sessions dealt the same board after reset")
	}

	if rec := ts.do(t, http.MethodPost, "/game/new", "", map[string]string{"mode": "hard"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode = %d", rec.Code)
	}
}

func TestNewGameBody(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty", nil, http.StatusCreated},
		{"normal", map[string]string{"mode": "normal"}, http.StatusCreated},
		{"malformed", `{"mode":`, http.StatusBadRequest},
		{"wrong type", `{"mode":3}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/game/new", "", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if tt.want == http.StatusBadRequest && !strings.Contains(rec.Body.String(), "bad_json") {
				t.Fatalf("body = %s", rec.Body)
			}
		})
	}
}

func TestCookieNameOption(t *testing.T) {
	ts := newTestServer(t)
	srv := New(ts.store, ts.srv.factory, Options{Secret: "test-secret", CookieName: "fc"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/game/new", nil))
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "fc" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no cookie named fc in %v", rec.Result().Cookies())
	}

	req := httptest.NewRequest(http.MethodGet, "/game", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /game with renamed cookie = %d", rec.Code)
	}
}
