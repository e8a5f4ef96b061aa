package attendee

import (
	"sync"
	"time"
)

// RosterCache keeps one Roster per session and event so selections and
// filters survive between requests. Idle rosters are evicted by Sweep.
type RosterCache struct {
	mu      sync.Mutex
	entries map[rosterKey]*rosterEntry
	now     func() time.Time
}

type rosterKey struct {
	sessionID string
	eventID   string
}

type rosterEntry struct {
	roster   *Roster
	lastUsed time.Time
}

func NewRosterCache() *RosterCache {
	return &RosterCache{entries: make(map[rosterKey]*rosterEntry), now: time.Now}
}

// Get returns the cached roster, building it with create on a miss.
func (c *RosterCache) Get(sessionID, eventID string, create func() *Roster) *Roster {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := rosterKey{sessionID: sessionID, eventID: eventID}
	entry, ok := c.entries[key]
	if !ok {
		entry = &rosterEntry{roster: create()}
		c.entries[key] = entry
	}
	entry.lastUsed = c.now()
	return entry.roster
}

// Sweep drops rosters unused for longer than idle and returns how many.
func (c *RosterCache) Sweep(idle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.now().Sub(entry.lastUsed) > idle {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *RosterCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
