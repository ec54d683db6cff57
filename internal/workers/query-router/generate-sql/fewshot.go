package generatesql

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"clientatech-agent/internal/models"
)

// Catalogue is the dataset-specific part of the generator prompts: the
// instructions and examples of each intent, and the expressions each dialect
// substitutes for the {placeholders} in them.
type Catalogue struct {
	Intents map[models.Intent]IntentPrompt
	// Hints maps dialect -> placeholder -> expression.
	Hints map[string]map[string]string
}

// IntentPrompt holds what the catalogue adds to one intent's prompt.
type IntentPrompt struct {
	Instructions []string  `yaml:"instructions"`
	Examples     []Example `yaml:"examples"`
}

// Example is one question/SQL pair shown to the model.
type Example struct {
	Question string `yaml:"question"`
	SQL      string `yaml:"sql"`
}

type catalogueFile struct {
	Dialects map[string]map[string]string `yaml:"dialects"`
	Intents  map[string]IntentPrompt      `yaml:"intents"`
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// LoadCatalogue reads a YAML catalogue. An empty path yields an empty
// catalogue, which leaves only the generic rules in the prompts.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return &Catalogue{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt catalogue: %w", err)
	}
	return ParseCatalogue(raw)
}

// ParseCatalogue decodes a catalogue. Unknown intents, examples that are not
// a SELECT and placeholders some dialect leaves undefined are errors.
func ParseCatalogue(raw []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}

	cat := &Catalogue{
		Intents: make(map[models.Intent]IntentPrompt, len(file.Intents)),
		Hints:   file.Dialects,
	}
	for label, prompt := range file.Intents {
		intent, ok := models.ParseIntent(label)
		if !ok || !intent.RequiresData() {
			return nil, fmt.Errorf("prompt catalogue: unsupported intent %q", label)
		}
		for i, ex := range prompt.Examples {
			if ex.Question == "" {
				return nil, fmt.Errorf("prompt catalogue: %s example %d has no question", intent, i)
			}
			tokens, err := lex(ex.SQL)
			if err != nil || len(tokens) == 0 || !(tokens[0].keyword("SELECT") || tokens[0].keyword("WITH")) {
				return nil, fmt.Errorf("prompt catalogue: %s example %d is not a SELECT", intent, i)
			}
		}
		cat.Intents[intent] = prompt
	}

	dialects := make([]string, 0, len(cat.Hints))
	for d := range cat.Hints {
		dialects = append(dialects, d)
	}
	sort.Strings(dialects)
	for _, d := range dialects {
		if err := cat.CheckDialect(d); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// CheckDialect reports a placeholder used by an instruction that dialect
// gives no expression for.
func (c *Catalogue) CheckDialect(dialect string) error {
	hints := c.Hints[dialect]
	for intent, prompt := range c.Intents {
		for _, line := range prompt.Instructions {
			for _, m := range placeholder.FindAllStringSubmatch(line, -1) {
				if m[1] == "dialect" {
					continue
				}
				if _, ok := hints[m[1]]; !ok {
					return fmt.Errorf("prompt catalogue: %s uses {%s}, undefined for dialect %s", intent, m[1], dialect)
				}
			}
		}
	}
	return nil
}

// ExampleCount is the number of examples across intents.
func (c *Catalogue) ExampleCount() int {
	n := 0
	for _, p := range c.Intents {
		n += len(p.Examples)
	}
	return n
}
