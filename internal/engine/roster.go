package engine

import (
	"encoding/json"
	"fmt"
)

type Slot int

const (
	SlotPG Slot = iota
	SlotSG
	SlotSF
	SlotPF
	SlotC

	NumSlots
)

var slotNames = [NumSlots]string{"PG", "SG", "SF", "PF", "C"}

func (s Slot) Valid() bool { return s >= 0 && s < NumSlots }

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid slot %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Slot) UnmarshalText(b []byte) error {
	slot, ok := ParseSlot(string(b))
	if !ok {
		return fmt.Errorf("unknown slot %q", string(b))
	}
	*s = slot
	return nil
}

// Candidate is anything that can be drafted into a roster slot.
type Candidate interface {
	ID() string
	DisplayName() string
	EnglishName() string
	Season() string
	Cost() int
	EligibleSlots() []Slot
	ResourceID() string
	Honors() Honors
}

type Honors struct {
	Championships int `json:"championships"`
	AllStars      int `json:"allStars"`
	MVPs          int `json:"mvps"`
	FinalsMVPs    int `json:"finalsMvps"`
}

// Pick is the value stored in a roster once a candidate is assigned.
type Pick struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NameEn     string `json:"nameEn"`
	PeakSeason string `json:"peakSeason"`
	Cost       int    `json:"cost"`
	Slots      []Slot `json:"slots"`
	ResourceID string `json:"resourceId"`
	Honors
}

func NewPick(c Candidate) Pick {
	return Pick{
		ID:         c.ID(),
		Name:       c.DisplayName(),
		NameEn:     c.EnglishName(),
		PeakSeason: c.Season(),
		Cost:       c.Cost(),
		Slots:      append([]Slot(nil), c.EligibleSlots()...),
		ResourceID: c.ResourceID(),
		Honors:     c.Honors(),
	}
}

// Roster is indexed by slot; a nil entry is an empty slot.
type Roster [NumSlots]*Pick

func (r Roster) Filled() []Pick {
	out := make([]Pick, 0, NumSlots)
	for _, p := range r {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (r Roster) Cost() int {
	total := 0
	for _, p := range r.Filled() {
		total += p.Cost
	}
	return total
}

func (r Roster) MarshalJSON() ([]byte, error) {
	m := make(map[string]*Pick, NumSlots)
	for i, p := range r {
		m[Slot(i).String()] = p
	}
	return json.Marshal(m)
}

func (r *Roster) UnmarshalJSON(b []byte) error {
	var m map[string]*Pick
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = Roster{}
	for name, p := range m {
		slot, ok := ParseSlot(name)
		if !ok {
			return fmt.Errorf("unknown slot %q", name)
		}
		r[slot] = p
	}
	return nil
}
