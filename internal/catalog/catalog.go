// internal/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/jason-s-yu/cardduel/internal/models"
)

// CatalogLoadError is returned when the card table cannot be read or parsed.
// Callers decide whether to abort or run with an empty catalog.
type CatalogLoadError struct {
	Path string
	Err  error
}

func (e *CatalogLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("catalog load failed: %v", e.Err)
	}
	return fmt.Sprintf("catalog load failed for %s: %v", e.Path, e.Err)
}

func (e *CatalogLoadError) Unwrap() error { return e.Err }

// Weights maps a rarity tier to its relative pull weight.
type Weights map[models.Rarity]int

// DefaultWeights are the pull weights used when none are configured.
var DefaultWeights = Weights{
	models.RarityCommon:    5,
	models.RarityUncommon:  3,
	models.RarityRare:      2,
	models.RarityLegendary: 1,
}

// Catalog is the read-only card table. It is safe for concurrent reads.
type Catalog struct {
	byID  map[string]*models.CardDefinition
	order []string // catalog file order, placeholder excluded
}

// New builds a catalog from already-decoded definitions. Duplicate ids and
// empty ids are rejected.
func New(defs []models.CardDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*models.CardDefinition, len(defs))}
	for i := range defs {
		def := defs[i]
		if def.ID == "" {
			return nil, &CatalogLoadError{Err: fmt.Errorf("entry %d has no card_id", i)}
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, &CatalogLoadError{Err: fmt.Errorf("duplicate card_id %q", def.ID)}
		}
		if def.Rarity != "" && !def.Rarity.Valid() {
			return nil, &CatalogLoadError{Err: fmt.Errorf("card %s has unknown rarity %q", def.ID, def.Rarity)}
		}
		def.Tags = append([]string(nil), def.Tags...)
		def.Effects = append([]models.Effect(nil), def.Effects...)
		c.byID[def.ID] = &def
		if def.ID != models.PlaceholderCardID {
			c.order = append(c.order, def.ID)
		}
	}
	return c, nil
}

// Empty returns a catalog with no cards, for degraded mode.
func Empty() *Catalog {
	return &Catalog{byID: map[string]*models.CardDefinition{}}
}

// Load reads a JSON array of card definitions from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CatalogLoadError{Path: path, Err: err}
	}
	var defs []models.CardDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, &CatalogLoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	c, err := New(defs)
	if err != nil {
		var le *CatalogLoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return c, nil
}

// Get looks up a definition by id. The returned pointer must not be mutated.
func (c *Catalog) Get(id string) (*models.CardDefinition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// All returns every definition except the placeholder, in file order.
func (c *Catalog) All() []*models.CardDefinition {
	out := make([]*models.CardDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len is the number of playable cards.
func (c *Catalog) Len() int { return len(c.order) }

// WeightedSample draws n card ids with replacement, each card weighted by its
// rarity. Selection walks a prefix-sum table with a binary search so the
// cost does not depend on the weight totals.
func (c *Catalog) WeightedSample(rng *rand.Rand, n int, weights Weights) []string {
	if n <= 0 || len(c.order) == 0 {
		return nil
	}
	if weights == nil {
		weights = DefaultWeights
	}

	ids := make([]string, 0, len(c.order))
	prefix := make([]int, 0, len(c.order))
	total := 0
	for _, id := range c.order {
		w := weights[c.byID[id].Rarity]
		if w <= 0 {
			continue
		}
		total += w
		ids = append(ids, id)
		prefix = append(prefix, total)
	}
	if total == 0 {
		return nil
	}

	out := make([]string, n)
	for i := range out {
		r := rng.IntN(total)
		idx := sort.Search(len(prefix), func(j int) bool { return prefix[j] > r })
		out[i] = ids[idx]
	}
	return out
}
