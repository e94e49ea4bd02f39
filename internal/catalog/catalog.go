package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
)

var ErrUnknownResource = errors.New("unknown resource")
var ErrUnknownCandidate = errors.New("unknown candidate")
var ErrNoResourceLeft = errors.New("no unused resource left")
var ErrInvalidCustom = errors.New("invalid custom candidate")

//go:embed default.yaml
var defaultCatalog []byte

type Resource struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Provider is the read-only reference data the draft draws from.
type Provider interface {
	Resources() []Resource
	Resource(id string) (Resource, bool)
	Candidate(id string) (engine.Candidate, bool)
	CandidatesByResource(id string) []engine.Candidate
}

type Catalog struct {
	resources  []Resource
	byResource map[string][]*CatalogCandidate
	byID       map[string]*CatalogCandidate
}

type fileFormat struct {
	Resources  []Resource         `yaml:"resources"`
	Candidates []CatalogCandidate `yaml:"candidates"`
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		resources:  make([]Resource, 0, len(f.Resources)),
		byResource: make(map[string][]*CatalogCandidate),
		byID:       make(map[string]*CatalogCandidate),
	}
	for _, r := range f.Resources {
		if r.ID == "" {
			return nil, errors.New("parse catalog: resource without id")
		}
		if _, dup := c.byResource[r.ID]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate resource %q", r.ID)
		}
		c.resources = append(c.resources, r)
		c.byResource[r.ID] = nil
	}

	for i := range f.Candidates {
		cand := &f.Candidates[i]
		switch {
		case cand.Key == "":
			return nil, fmt.Errorf("parse catalog: candidate %d without id", i)
		case c.byID[cand.Key] != nil:
			return nil, fmt.Errorf("parse catalog: duplicate candidate %q", cand.Key)
		case cand.Price < 0:
			return nil, fmt.Errorf("parse catalog: candidate %q has negative cost", cand.Key)
		case len(cand.Slots) == 0:
			return nil, fmt.Errorf("parse catalog: candidate %q has no slots", cand.Key)
		}
		if _, ok := c.byResource[cand.Resource]; !ok {
			return nil, fmt.Errorf("parse catalog: candidate %q: %w %q", cand.Key, ErrUnknownResource, cand.Resource)
		}
		c.byID[cand.Key] = cand
		c.byResource[cand.Resource] = append(c.byResource[cand.Resource], cand)
	}
	return c, nil
}

func (c *Catalog) Resources() []Resource {
	return slices.Clone(c.resources)
}

func (c *Catalog) Resource(id string) (Resource, bool) {
	for _, r := range c.resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

func (c *Catalog) Candidate(id string) (engine.Candidate, bool) {
	cand, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return cand, true
}

func (c *Catalog) CandidatesByResource(id string) []engine.Candidate {
	list := c.byResource[id]
	out := make([]engine.Candidate, 0, len(list))
	for _, cand := range list {
		out = append(out, cand)
	}
	return out
}

// RandomUnused picks a resource nobody has drawn yet.
func RandomUnused(p Provider, used []string, rng *rand.Rand) (Resource, error) {
	var free []Resource
	for _, r := range p.Resources() {
		if !slices.Contains(used, r.ID) {
			free = append(free, r)
		}
	}
	if len(free) == 0 {
		return Resource{}, ErrNoResourceLeft
	}
	if rng == nil {
		return free[rand.IntN(len(free))], nil
	}
	return free[rng.IntN(len(free))], nil
}

type CustomSpec struct {
	Name   string
	NameEn string
	Season string
	Cost   int
	Slot   engine.Slot
}

// NewCustom builds a user-entered candidate bound to the drawn resource.
func NewCustom(spec CustomSpec, resourceID string) (*CustomCandidate, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCustom)
	}
	if spec.Cost < 1 {
		return nil, fmt.Errorf("%w: cost must be at least 1", ErrInvalidCustom)
	}
	if !spec.Slot.Valid() {
		return nil, fmt.Errorf("%w: unknown slot", ErrInvalidCustom)
	}
	nameEn := strings.TrimSpace(spec.NameEn)
	if nameEn == "" {
		nameEn = name
	}
	return &CustomCandidate{
		Key:        "custom_" + uuid.NewString(),
		Name:       name,
		NameEn:     nameEn,
		PeakSeason: strings.TrimSpace(spec.Season),
		Price:      spec.Cost,
		Slot:       spec.Slot,
		Resource:   resourceID,
	}, nil
}
