package generatesql

import (
	"fmt"
	"strings"

	"clientatech-agent/internal/common/database"
	"clientatech-agent/internal/models"
)

// role frames the logic model for one intent. Dataset specifics come from
// the catalogue and the introspected schema.
type role struct {
	Title string
	Goal  string
}

// roles holds one entry per data intent. GREETING has none.
var roles = map[models.Intent]role{
	models.IntentProfile: {
		Title: "Expert SQL Data Scientist (Profile Specialist).",
		Goal:  "Fetch the full profile of one client: registration data, contracts and most recent interaction.",
	},
	models.IntentHistory: {
		Title: "Expert SQL Data Scientist (History Specialist).",
		Goal:  "Fetch the chronological list of interactions of one client.",
	},
	models.IntentRisk: {
		Title: "Expert SQL Data Scientist (Risk Specialist).",
		Goal:  "Gather risk evidence, globally or for one client. Do not judge risk in SQL; return the metrics.",
	},
	models.IntentAbsence: {
		Title: "Expert SQL Data Scientist (Absence Specialist).",
		Goal:  "Identify absent clients: no recent contact, inactive status, or both, as the question asks.",
	},
	models.IntentGeneral: {
		Title: "Expert SQL Data Scientist.",
		Goal:  "Answer aggregations, financial totals, dates and direct lookups.",
	},
}

var commonRules = []string{
	"Output exactly one SELECT statement in a ```sql block. Never modify data.",
	"Use only the tables and columns of the schema, in lower case, with their original names.",
	"Quote identifiers only with double quotes.",
	"Alias only calculated columns, always with AS.",
	"Do not invent values or use outside knowledge.",
}

var dialectNames = map[string]string{
	database.DialectSQLite:   "SQLite",
	database.DialectPostgres: "PostgreSQL",
}

// buildPrompt renders the system prompt for intent. rejection, when set, is
// the reason the previous attempt was refused.
func buildPrompt(intent models.Intent, schema models.SchemaDescription, dialect string, cat *Catalogue, rejection string) (string, error) {
	r, ok := roles[intent]
	if !ok {
		return "", fmt.Errorf("no SQL prompt for intent %s", intent)
	}
	name, ok := dialectNames[dialect]
	if !ok {
		name = dialectNames[database.DialectSQLite]
	}

	pairs := []string{"{dialect}", name}
	for k, v := range cat.Hints[dialect] {
		pairs = append(pairs, "{"+k+"}", v)
	}
	fill := strings.NewReplacer(pairs...)
	prompt := cat.Intents[intent]

	var b strings.Builder
	fmt.Fprintf(&b, "# ROLE\n%s\n\n# GOAL\n%s\n\n# SCHEMA\n%s", r.Title, r.Goal, schema.Render())
	if len(prompt.Instructions) > 0 {
		b.WriteString("\n# INSTRUCTIONS\n")
		for i, line := range prompt.Instructions {
			line = fill.Replace(line)
			if m := placeholder.FindString(line); m != "" {
				return "", fmt.Errorf("no %s expression for %s", name, m)
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, line)
		}
	}
	b.WriteString("\n# RULES\n")
	fmt.Fprintf(&b, "1. %s syntax only.\n", name)
	for i, rule := range commonRules {
		fmt.Fprintf(&b, "%d. %s\n", i+2, rule)
	}

	if len(prompt.Examples) > 0 {
		b.WriteString("\n# EXAMPLES\n")
		for _, ex := range prompt.Examples {
			fmt.Fprintf(&b, "Question: %s\n```sql\n%s\n```\n", ex.Question, strings.TrimSpace(ex.SQL))
		}
	}

	if rejection != "" {
		fmt.Fprintf(&b, "\n# PREVIOUS ATTEMPT REJECTED\nReason: %s\nWrite a corrected statement that avoids this problem.\n", rejection)
	}
	return b.String(), nil
}
