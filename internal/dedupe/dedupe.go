// Package dedupe holds the shared singleflight groups. Concurrent callers
// with the same key share one execution and its result.
package dedupe

import "golang.org/x/sync/singleflight"

// DuelRequestGroup collapses concurrent duel requests between the same pair
// of users, keyed by keys.DuelRequest.
var DuelRequestGroup singleflight.Group
