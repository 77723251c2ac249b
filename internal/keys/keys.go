package keys

import (
	"fmt"
	"sort"
	"strings"
)

// PairKey produces a canonical key for a set of participants. Ids are
// trimmed, blanks dropped and the rest sorted, so PairKey("b", "a") equals
// PairKey("a", "b"). Ids are case-sensitive and kept as given.
func PairKey(userIDs ...string) string {
	parts := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		s := strings.TrimSpace(id)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// DuelRequest is the dedupe key for a duel request between two users.
func DuelRequest(a, b string) string {
	return "duel:request:" + PairKey(a, b)
}

// EventChannel is the pub/sub channel carrying a session's events.
func EventChannel(sessionID string) string {
	return fmt.Sprintf("duel:event:%s", sessionID)
}

// SessionSnapshot is the key holding the latest snapshot of a session.
func SessionSnapshot(sessionID string) string {
	return fmt.Sprintf("duel:session:%s", sessionID)
}
