package catalog

import "github.com/DoyleJ11/hoops-draft-backend/internal/engine"

type CatalogCandidate struct {
	Key           string        `yaml:"id"`
	Name          string        `yaml:"name"`
	NameEn        string        `yaml:"nameEn"`
	Price         int           `yaml:"cost"`
	Slots         []engine.Slot `yaml:"slots"`
	Resource      string        `yaml:"resource"`
	PeakSeason    string        `yaml:"peakSeason"`
	Championships int           `yaml:"championships"`
	AllStars      int           `yaml:"allStars"`
	MVPs          int           `yaml:"mvps"`
	FinalsMVPs    int           `yaml:"finalsMvps"`
}

func (c *CatalogCandidate) ID() string                   { return c.Key }
func (c *CatalogCandidate) DisplayName() string          { return c.Name }
func (c *CatalogCandidate) Season() string               { return c.PeakSeason }
func (c *CatalogCandidate) Cost() int                    { return c.Price }
func (c *CatalogCandidate) EligibleSlots() []engine.Slot { return c.Slots }
func (c *CatalogCandidate) ResourceID() string           { return c.Resource }

// EnglishName falls back to the display name when the catalog has none.
func (c *CatalogCandidate) EnglishName() string {
	if c.NameEn == "" {
		return c.Name
	}
	return c.NameEn
}

func (c *CatalogCandidate) Honors() engine.Honors {
	return engine.Honors{
		Championships: c.Championships,
		AllStars:      c.AllStars,
		MVPs:          c.MVPs,
		FinalsMVPs:    c.FinalsMVPs,
	}
}

// CustomCandidate is entered by a seat during its turn. It plays one slot and
// carries no honors.
type CustomCandidate struct {
	Key        string
	Name       string
	NameEn     string
	PeakSeason string
	Price      int
	Slot       engine.Slot
	Resource   string
}

func (c *CustomCandidate) ID() string                   { return c.Key }
func (c *CustomCandidate) DisplayName() string          { return c.Name }
func (c *CustomCandidate) EnglishName() string          { return c.NameEn }
func (c *CustomCandidate) Season() string               { return c.PeakSeason }
func (c *CustomCandidate) Cost() int                    { return c.Price }
func (c *CustomCandidate) EligibleSlots() []engine.Slot { return []engine.Slot{c.Slot} }
func (c *CustomCandidate) ResourceID() string           { return c.Resource }
func (c *CustomCandidate) Honors() engine.Honors        { return engine.Honors{} }

var (
	_ engine.Candidate = (*CatalogCandidate)(nil)
	_ engine.Candidate = (*CustomCandidate)(nil)
)
