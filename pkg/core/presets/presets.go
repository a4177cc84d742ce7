// Package presets provides the built-in example data sets and scenario families.
package presets

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

//go:embed presets.yaml
var presetsYAML []byte

// ErrNotFound is returned by Get for an unknown preset id.
var ErrNotFound = errors.New("preset not found")

// DefaultID identifies the data set returned by Default.
const DefaultID = "default"

// Family is a group of scenarios built on the same EBITDA series.
type Family struct {
	Name        string   `json:"name"`
	DefaultID   string   `json:"defaultId"`
	ScenarioIDs []string `json:"scenarioIds"`
}

type seriesFile struct {
	Currency   string            `yaml:"currency"`
	Historical []int             `yaml:"historical"`
	EBITDA     models.EBITDAData `yaml:"ebitda"`
}

type scenarioFile struct {
	ID             string  `yaml:"id"`
	Label          string  `yaml:"label"`
	DiscountRate   float64 `yaml:"discountRate"`
	PerpetuityRate float64 `yaml:"perpetuityRate"`
}

type familyFile struct {
	Name             string         `yaml:"name"`
	Series           string         `yaml:"series"`
	CorporateTaxRate float64        `yaml:"corporateTaxRate"`
	Default          string         `yaml:"default"`
	Scenarios        []scenarioFile `yaml:"scenarios"`
}

type presetsFile struct {
	Series  map[string]seriesFile `yaml:"series"`
	Default struct {
		ID               string  `yaml:"id"`
		Label            string  `yaml:"label"`
		Series           string  `yaml:"series"`
		DiscountRate     float64 `yaml:"discountRate"`
		PerpetuityRate   float64 `yaml:"perpetuityRate"`
		CorporateTaxRate float64 `yaml:"corporateTaxRate"`
	} `yaml:"default"`
	Families []familyFile `yaml:"families"`
}

type catalog struct {
	order    []string
	byID     map[string]models.DataSet
	families []Family
}

var (
	loadOnce sync.Once
	loaded   *catalog
)

func get() *catalog {
	loadOnce.Do(func() {
		c, err := parse(presetsYAML)
		if err != nil {
			panic(fmt.Sprintf("presets: embedded presets.yaml is invalid: %v", err))
		}
		loaded = c
	})
	return loaded
}

func parse(data []byte) (*catalog, error) {
	var f presetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	c := &catalog{byID: make(map[string]models.DataSet)}
	add := func(ds models.DataSet) error {
		if _, dup := c.byID[ds.ID]; dup {
			return fmt.Errorf("duplicate preset id %q", ds.ID)
		}
		c.order = append(c.order, ds.ID)
		c.byID[ds.ID] = ds
		return nil
	}

	def := f.Default
	base, ok := f.Series[def.Series]
	if !ok {
		return nil, fmt.Errorf("default preset references unknown series %q", def.Series)
	}
	if err := add(build(def.ID, def.Label, base, models.Parameters{
		DiscountRate:     def.DiscountRate,
		PerpetuityRate:   def.PerpetuityRate,
		CorporateTaxRate: def.CorporateTaxRate,
	})); err != nil {
		return nil, err
	}

	for _, fam := range f.Families {
		series, ok := f.Series[fam.Series]
		if !ok {
			return nil, fmt.Errorf("family %q references unknown series %q", fam.Name, fam.Series)
		}
		family := Family{Name: fam.Name, DefaultID: fam.Default}
		for _, s := range fam.Scenarios {
			ds := build(s.ID, fam.Name+" "+s.Label, series, models.Parameters{
				DiscountRate:     s.DiscountRate,
				PerpetuityRate:   s.PerpetuityRate,
				CorporateTaxRate: fam.CorporateTaxRate,
			})
			if err := add(ds); err != nil {
				return nil, err
			}
			family.ScenarioIDs = append(family.ScenarioIDs, s.ID)
		}
		c.families = append(c.families, family)
	}
	return c, nil
}

func build(id, label string, s seriesFile, params models.Parameters) models.DataSet {
	ds := models.DataSet{
		ID:               id,
		Label:            label,
		EBITDAData:       s.EBITDA.Clone(),
		Parameters:       params,
		FiscalYearLabels: FiscalYearLabels(s.EBITDA.Years()),
		BaseCurrency:     s.Currency,
	}
	if len(s.Historical) > 0 {
		ds.Historical = make(map[int]bool, len(s.Historical))
		for _, y := range s.Historical {
			ds.Historical[y] = true
		}
	}
	return ds
}

// FiscalYearLabels labels each year "FY" plus its last two digits.
func FiscalYearLabels(years []int) models.FiscalYearLabels {
	labels := make(models.FiscalYearLabels, len(years))
	for _, y := range years {
		labels[y] = fmt.Sprintf("FY%02d", y%100)
	}
	return labels
}

// All returns every preset, the default first.
func All() []models.DataSet {
	c := get()
	out := make([]models.DataSet, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// Get returns the preset with the given id.
func Get(id string) (models.DataSet, error) {
	ds, ok := get().byID[id]
	if !ok {
		return models.DataSet{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ds.Clone(), nil
}

// Default returns the default data set (30% discount, 4% growth, 21% tax).
func Default() models.DataSet {
	ds, _ := Get(DefaultID)
	return ds
}

// Families lists the scenario families in file order.
func Families() []Family {
	fams := get().families
	out := make([]Family, len(fams))
	for i, f := range fams {
		f.ScenarioIDs = append([]string(nil), f.ScenarioIDs...)
		out[i] = f
	}
	return out
}
