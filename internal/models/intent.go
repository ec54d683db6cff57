package models

import "strings"

// Intent is the routing label chosen by the classifier.
type Intent string

const (
	IntentProfile  Intent = "PROFILE"
	IntentRisk     Intent = "RISK"
	IntentHistory  Intent = "HISTORY"
	IntentAbsence  Intent = "ABSENCE"
	IntentGeneral  Intent = "GENERAL"
	IntentGreeting Intent = "GREETING"
)

// Intents lists every valid intent in routing order.
var Intents = []Intent{
	IntentProfile,
	IntentRisk,
	IntentHistory,
	IntentAbsence,
	IntentGeneral,
	IntentGreeting,
}

// ParseIntent accepts an exact intent name, ignoring case and surrounding space.
func ParseIntent(label string) (Intent, bool) {
	candidate := Intent(strings.ToUpper(strings.TrimSpace(label)))
	for _, intent := range Intents {
		if intent == candidate {
			return intent, true
		}
	}
	return "", false
}

// RequiresData reports whether the intent goes through SQL generation and execution.
func (i Intent) RequiresData() bool {
	return i != IntentGreeting
}

func (i Intent) String() string {
	return string(i)
}
