// Package category classifies tenders by object description keywords.
package category

import (
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Category names follow the upstream portals' taxonomy.
const (
	Technology   = "Tecnologia da Informação"
	Construction = "Construção Civil"
	Services     = "Serviços"
	Equipment    = "Equipamentos"
	Supplies     = "Materiais"
	Other        = "Outros"
)

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics, so "Licitação" and "licitacao"
// compare equal. Tender text mixes accented and unaccented spellings freely.
func Fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// rule maps a category to the keywords that select it. Rules are evaluated
// in order; the first hit wins.
type rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Classifier assigns a category to tender titles.
type Classifier struct {
	rules []rule
}

// defaultRules mirror the keyword sets the government portals use in their
// own categorization.
var defaultRules = []rule{
	{Category: Technology, Keywords: []string{"software", "sistema", "tecnologia", "informatica", "computador", "rede"}},
	{Category: Construction, Keywords: []string{"obra", "construcao", "reforma", "engenharia", "edificacao"}},
	{Category: Services, Keywords: []string{"servico", "consultoria", "manutencao", "limpeza", "vigilancia"}},
	{Category: Equipment, Keywords: []string{"equipamento", "maquina", "veiculo", "mobiliario"}},
	{Category: Supplies, Keywords: []string{"material", "suprimento", "insumo", "combustivel"}},
}

// NewClassifier returns a classifier with the built-in rules.
func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules}
}

// LoadClassifier reads a rule catalog from a YAML file. Keywords are folded
// on load so catalogs may be written with or without accents.
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "category: read catalog %s", path)
	}

	var wrapper struct {
		Categories []rule `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "category: parse catalog")
	}
	if len(wrapper.Categories) == 0 {
		return nil, eris.Errorf("category: catalog %s defines no categories", path)
	}

	for i, r := range wrapper.Categories {
		for j, kw := range r.Keywords {
			wrapper.Categories[i].Keywords[j] = Fold(kw)
		}
	}
	return &Classifier{rules: wrapper.Categories}, nil
}

// Classify returns the category for a tender title, or Other when no
// keyword matches.
func (c *Classifier) Classify(title string) string {
	folded := Fold(title)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(folded, kw) {
				return r.Category
			}
		}
	}
	return Other
}
