// Command flipcard-tui plays a round of flip card in the terminal.
//
// Arrow keys move, Enter flips the selected card, r deals a new round and
// q quits. The card table, seed and log level come from the same environment
// variables as the server; logs are discarded unless LOG_FILE is set.
package main

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/config"
	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "flipcard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	defs, err := deck.Load(cfg.CardsFile)
	if err != nil {
		return fmt.Errorf("load card table: %w", err)
	}

	app := tview.NewApplication()
	bell := &Bell{}
	app.SetBeforeDrawFunc(bell.Attach)

	var ctrl *game.Controller
	r := NewRenderer(app, func() { ctrl.NewRound() })
	ctrl = game.NewController(defs, r, bell, game.Options{Rand: deck.NewRand(cfg.Seed)})

	app.SetInputCapture(keys(app, ctrl))

	// Renderer calls only queue widget updates, so dealing before Run is fine;
	// they are drawn once the event loop starts.
	ctrl.NewRound()
	log.Info().Int("pairs", len(defs)).Msg("starting terminal game")
	if err := app.SetRoot(r.Root(), true).Run(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}

	st := ctrl.State()
	fmt.Printf("Score: %d  Moves: %d  Pairs: %d/%d\n", st.Score, st.Moves, st.Matched, st.TotalPairs)
	return nil
}

// keys handles the global shortcuts: q quits, r deals a new round.
func keys(app *tview.Application, ctrl *game.Controller) func(*tcell.EventKey) *tcell.EventKey {
	return func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() != tcell.KeyRune {
			return ev
		}
		switch ev.Rune() {
		case 'q', 'Q':
			app.Stop()
			return nil
		case 'r', 'R':
			ctrl.NewRound()
			return nil
		}
		return ev
	}
}

// setupLogging points the global logger at LOG_FILE, or silences it so log
// lines do not corrupt the terminal.
func setupLogging(cfg config.Config) (func(), error) {
	if cfg.LogFile == "" {
		zerolog.SetGlobalLevel(zerolog.Disabled)
		return func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return func() { _ = f.Close() }, nil
}
