package catalog

import (
	"fmt"
	"os"

	"github.com/jason-s-yu/cardduel/internal/models"
	"gopkg.in/yaml.v3"
)

// DeckFile is the top-level YAML structure of a deck list.
type DeckFile struct {
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry is a single named deck.
type DeckEntry struct {
	Name  string      `yaml:"name"`
	Cards []CardEntry `yaml:"cards"`
}

// CardEntry is a card id and how many copies the deck holds.
type CardEntry struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// ParseDeckFile reads a YAML deck list and expands every deck into an ordered
// slice of card ids, validated against c.
func (c *Catalog) ParseDeckFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.ParseDecks(data)
}

// ParseDecks is ParseDeckFile over raw YAML bytes.
func (c *Catalog) ParseDecks(data []byte) (map[string][]string, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse deck YAML: %w", err)
	}

	decks := make(map[string][]string, len(df.Decks))
	for _, deck := range df.Decks {
		ids, err := c.expand(deck)
		if err != nil {
			return nil, err
		}
		decks[deck.Name] = ids
	}
	return decks, nil
}

func (c *Catalog) expand(deck DeckEntry) ([]string, error) {
	var ids []string
	for _, entry := range deck.Cards {
		if entry.ID == models.PlaceholderCardID {
			return nil, fmt.Errorf("deck %q: card %s is not playable", deck.Name, entry.ID)
		}
		if _, ok := c.Get(entry.ID); !ok {
			return nil, fmt.Errorf("deck %q: unknown card %s", deck.Name, entry.ID)
		}
		for i := 0; i < entry.Count; i++ {
			ids = append(ids, entry.ID)
		}
	}
	return ids, nil
}
