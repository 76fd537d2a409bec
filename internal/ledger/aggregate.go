package ledger

import (
	"sort"

	"github.com/roach88/settle/internal/account"
)

// TopByCategory returns, for each distinct category in updates, the update
// with the largest Tokens. The first occurrence wins an exact tie. Results
// are ordered by category ascending (byte order).
func TopByCategory(updates []account.Update) []account.Update {
	index := make(map[string]int)
	var out []account.Update
	for _, u := range updates {
		i, ok := index[u.Type]
		if !ok {
			index[u.Type] = len(out)
			out = append(out, u)
			continue
		}
		if u.Tokens.GreaterThan(out[i].Tokens) {
			out[i] = u
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
