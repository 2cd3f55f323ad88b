package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// guestLimitsKey is where the serialized counts live in the session KV.
const guestLimitsKey = "usage_limits"

// KV is the local, ephemeral key-value capability guest limits are stored
// in — in practice the cookie session, which the browser clears when the
// browsing session ends. Injecting it keeps the ledger free of any
// branching on where state actually lives.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// guestStore keeps guest limits in the session KV as a JSON object keyed by
// test type. Explicitly best-effort: a user who clears their cookies gets
// fresh defaults, and nothing here pretends otherwise. The fingerprint
// resolver is the secondary signal that caps abuse of that.
type guestStore struct {
	kv       KV
	defaults int
}

func (g *guestStore) Limits() (map[models.TestType]int, error) {
	raw, ok := g.kv.Get(guestLimitsKey)
	if !ok {
		limits := make(map[models.TestType]int, len(models.AllTestTypes()))
		for _, t := range models.AllTestTypes() {
			limits[t] = g.defaults
		}
		if err := g.save(limits); err != nil {
			return nil, err
		}
		return limits, nil
	}

	var limits map[models.TestType]int
	if err := json.Unmarshal([]byte(raw), &limits); err != nil {
		return nil, fmt.Errorf("corrupt guest limits state: %w", err)
	}
	// Seed any test type added since the state was first written.
	for _, t := range models.AllTestTypes() {
		if _, ok := limits[t]; !ok {
			limits[t] = g.defaults
		}
	}
	return limits, nil
}

func (g *guestStore) Decrement(t models.TestType) (bool, error) {
	limits, err := g.Limits()
	if err != nil {
		return false, err
	}
	if limits[t] <= 0 {
		return false, nil
	}
	limits[t]--
	if err := g.save(limits); err != nil {
		return false, err
	}
	return true, nil
}

func (g *guestStore) save(limits map[models.TestType]int) error {
	data, err := json.Marshal(limits)
	if err != nil {
		return err
	}
	return g.kv.Set(guestLimitsKey, string(data))
}
