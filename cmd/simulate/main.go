// cmd/simulate/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/config"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/reward"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// simulate plays two decks from the deck file against each other, each side
// drawing one card and playing its first hand card per turn, and prints the
// resulting summary as JSON.
func main() {
	deck1 := flag.String("deck1", "Firestarter", "deck name for player 1")
	deck2 := flag.String("deck2", "Quarantine", "deck name for player 2")
	maxTurns := flag.Int("turns", 60, "turn limit before the duel is called a draw")
	wager := flag.Int("wager", 0, "coins wagered by each side")
	seed := flag.Uint64("seed", 0, "random seed, 0 for a random one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.WithError(err).Fatal("card catalog failed to load")
	}
	decks, err := cat.ParseDeckFile(cfg.DecksPath)
	if err != nil {
		logger.WithError(err).Fatal("deck file")
	}
	for _, name := range []string{*deck1, *deck2} {
		if _, ok := decks[name]; !ok {
			logger.Fatalf("unknown deck %q", name)
		}
	}

	ctx := context.Background()
	gw, closeGateway, err := cfg.OpenGateway(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("storage backend failed to open")
	}
	defer closeGateway()

	mcfg := duel.ManagerConfig{Weights: cfg.Weights()}
	if *seed != 0 {
		s := *seed
		mcfg.NewRand = func() *rand.Rand { return rand.New(rand.NewPCG(s, s)) }
	}
	writer := reward.NewWriter(gw, logger, reward.WithNotifier(reward.LogNotifier{Logger: logger}))
	m := duel.NewManager(cat, writer, logger, mcfg)

	summary, err := run(ctx, m, decks[*deck1], decks[*deck2], *wager, *maxTurns)
	if err != nil {
		logger.WithError(err).Fatal("simulation failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		logger.WithError(err).Fatal("encode summary")
	}
}

func run(ctx context.Context, m *duel.Manager, deck1, deck2 []string, wager, maxTurns int) (models.Summary, error) {
	id, err := m.StartLive(
		duel.Participant{ID: "sim-1", Name: "Player 1"},
		duel.Participant{ID: "sim-2", Name: "Player 2"},
		deck1, deck2, wager,
	)
	if err != nil {
		return models.Summary{}, err
	}

	winner := ""
	for turn := 0; turn < maxTurns; turn++ {
		v, err := m.GetState(id, false)
		if err != nil {
			return models.Summary{}, err
		}
		seat := v.CurrentPlayer

		_, out, err := m.Draw(id, seat, 1)
		if err != nil {
			return models.Summary{}, err
		}
		if !out.Over {
			out, err = playFirst(m, id, seat)
			if err != nil {
				return models.Summary{}, err
			}
		}
		if out.Over {
			winner = string(out.Winner)
			break
		}
		if _, err := m.AdvanceTurn(id); err != nil {
			return models.Summary{}, err
		}
	}

	st, err := m.End(id, winner)
	if err != nil {
		return models.Summary{}, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := st.Wait(waitCtx); err != nil {
		return st.Summary, err
	}
	return st.Summary, nil
}

func playFirst(m *duel.Manager, id string, seat models.Seat) (duel.Outcome, error) {
	v, err := m.GetState(id, false)
	if err != nil {
		return duel.Outcome{}, err
	}
	hand := v.Players[seat].Hand
	if len(hand) == 0 {
		return duel.Outcome{}, nil
	}
	_, out, err := m.PlayCard(id, seat, hand[0].InstanceID)
	return out, err
}
