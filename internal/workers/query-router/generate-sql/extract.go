package generatesql

import (
	"regexp"
	"strings"
)

var (
	sqlFence     = regexp.MustCompile("(?is)```sql\\s*(.*?)```")
	genericFence = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// extractSQL pulls the statement out of a model reply: a ```sql block first,
// then any fenced block, then the whole reply.
func extractSQL(reply string) string {
	if m := sqlFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := genericFence.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(reply)
}
