// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// PlaceholderCardID is the card back. It is never dealt, drawn or pulled.
const PlaceholderCardID = "000"

// Rarity is the catalog rarity tier of a card definition.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityLegendary Rarity = "Legendary"
)

// Valid reports whether r is one of the four known tiers.
func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

// EffectKind enumerates the effects a card (or combo bonus) can declare.
// EffectUnknown keeps catalog data loadable when it names a kind this build
// does not implement; the resolver skips it with a warning.
type EffectKind int

const (
	EffectUnknown EffectKind = iota
	EffectDamage
	EffectHeal
	EffectDraw
	EffectForceDiscard
	EffectSteal
	EffectRevealHand
)

var effectKindNames = map[EffectKind]string{
	EffectDamage:       "damage",
	EffectHeal:         "heal",
	EffectDraw:         "draw",
	EffectForceDiscard: "force_discard",
	EffectSteal:        "steal",
	EffectRevealHand:   "reveal_hand",
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEffectKind maps a catalog "type" string to an EffectKind.
func ParseEffectKind(s string) EffectKind {
	for k, name := range effectKindNames {
		if name == s {
			return k
		}
	}
	return EffectUnknown
}

// Effect is a single declared action, e.g. {"type": "damage", "value": 30}.
type Effect struct {
	Kind  EffectKind
	Value int

	// Raw holds the original type string so unknown kinds can be reported.
	Raw string
}

// NewEffect builds a known effect.
func NewEffect(kind EffectKind, value int) Effect {
	return Effect{Kind: kind, Value: value, Raw: kind.String()}
}

type effectJSON struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

func (e Effect) MarshalJSON() ([]byte, error) {
	name := e.Raw
	if e.Kind != EffectUnknown {
		name = e.Kind.String()
	}
	return json.Marshal(effectJSON{Type: name, Value: e.Value})
}

func (e *Effect) UnmarshalJSON(data []byte) error {
	var raw effectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode effect: %w", err)
	}
	e.Kind = ParseEffectKind(raw.Type)
	e.Value = raw.Value
	e.Raw = raw.Type
	return nil
}

// CardDefinition is one immutable row of the card catalog.
type CardDefinition struct {
	ID      string   `json:"card_id"`
	Name    string   `json:"name"`
	Rarity  Rarity   `json:"rarity"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags"`
	Effects []Effect `json:"logicActions"`
}

// HasTag reports whether the definition carries tag.
func (d *CardDefinition) HasTag(tag string) bool {
	return slices.Contains(d.Tags, tag)
}

// Animation is an advisory entry for renderers; the core never times it.
type Animation struct {
	Type      string    `json:"type"`
	Combo     string    `json:"combo,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CardInstance is a runtime copy of a catalog card owned by exactly one zone.
type CardInstance struct {
	InstanceID uuid.UUID   `json:"instanceId"`
	CardID     string      `json:"cardId"`
	IsFaceDown bool        `json:"isFaceDown"`
	Animations []Animation `json:"animations,omitempty"`
}

// NewCardInstance creates a face-up instance of cardID with a fresh instance id.
func NewCardInstance(cardID string) *CardInstance {
	return &CardInstance{InstanceID: uuid.New(), CardID: cardID}
}

// Clone returns a deep copy that shares nothing with c.
func (c *CardInstance) Clone() *CardInstance {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Animations != nil {
		cp.Animations = make([]Animation, len(c.Animations))
		copy(cp.Animations, c.Animations)
	}
	return &cp
}

// CloneCards deep-copies a zone.
func CloneCards(cards []*CardInstance) []*CardInstance {
	out := make([]*CardInstance, len(cards))
	for i, c := range cards {
		out[i] = c.Clone()
	}
	return out
}
