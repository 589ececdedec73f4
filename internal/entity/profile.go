package entity

import "github.com/samdwyer/xueba/internal/gamedata"

const (
	// MaxFixedLevel is the last fixed stage.
	MaxFixedLevel = 100

	// RandomLevelID is the selected-level sentinel for generated encounters.
	RandomLevelID = 999
)

// Profile is a player's persistent save.
type Profile struct {
	UID          string `json:"uid"`
	Nickname     string `json:"nickname"`
	CurrentLevel int    `json:"currentLevel"` // Highest unlocked fixed stage
	Cards        []Card `json:"cards"`        // Acquisition order
}

// NewStarterProfile creates a profile at level 1 holding the starter deck.
func NewStarterProfile(uid, nickname string, deck []gamedata.CardDef) *Profile {
	p := &Profile{
		UID:          uid,
		Nickname:     nickname,
		CurrentLevel: 1,
		Cards:        make([]Card, 0, len(deck)),
	}
	for _, def := range deck {
		p.Cards = append(p.Cards, NewCardFromDef(def))
	}
	return p
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Cards = CloneCards(p.Cards)
	return &out
}

// CloneCards copies a card slice.
func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

// CardIDs returns the ids of every owned card in order.
func (p *Profile) CardIDs() []string {
	ids := make([]string, len(p.Cards))
	for i, c := range p.Cards {
		ids[i] = c.ID
	}
	return ids
}

// HasCard reports whether the profile owns a card with the given id.
func (p *Profile) HasCard(id string) bool {
	for _, c := range p.Cards {
		if c.ID == id {
			return true
		}
	}
	return false
}

// AddCards appends cards, skipping ids the profile already owns.
func (p *Profile) AddCards(cards []Card) int {
	added := 0
	for _, c := range cards {
		if c.ID == "" || p.HasCard(c.ID) {
			continue
		}
		p.Cards = append(p.Cards, c)
		added++
	}
	return added
}

// RaiseLevel unlocks stages up to level, never lowering progress.
func (p *Profile) RaiseLevel(level int) bool {
	if level > MaxFixedLevel+1 {
		level = MaxFixedLevel + 1
	}
	if level <= p.CurrentLevel {
		return false
	}
	p.CurrentLevel = level
	return true
}

// AddExpToCards grants experience to every card whose id is listed.
func (p *Profile) AddExpToCards(ids []string, amount int) []string {
	if amount <= 0 || len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var lines []string
	for i := range p.Cards {
		if want[p.Cards[i].ID] {
			lines = append(lines, p.Cards[i].AddExp(amount)...)
		}
	}
	return lines
}

// Normalize upgrades legacy cards in place.
func (p *Profile) Normalize() {
	if p.CurrentLevel < 1 {
		p.CurrentLevel = 1
	}
	for i := range p.Cards {
		p.Cards[i].Normalize()
	}
}
