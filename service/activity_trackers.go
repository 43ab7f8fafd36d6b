package service

import (
	"sync"
	"time"
)

type memberKey struct {
	guildID   int64
	discordID int64
}

// VoiceTracker remembers when each member joined voice. It lives in memory
// and is rebuilt from the platform's voice states on startup.
type VoiceTracker struct {
	mu       sync.Mutex
	sessions map[memberKey]time.Time
}

func NewVoiceTracker() *VoiceTracker {
	return &VoiceTracker{sessions: make(map[memberKey]time.Time)}
}

// Start records a session start unless one is already open
func (v *VoiceTracker) Start(guildID, discordID int64, at time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := memberKey{guildID, discordID}
	if _, open := v.sessions[key]; !open {
		v.sessions[key] = at
	}
}

// End closes a session and returns its whole minutes
func (v *VoiceTracker) End(guildID, discordID int64, at time.Time) (minutes int64, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := memberKey{guildID, discordID}
	started, open := v.sessions[key]
	if !open {
		return 0, false
	}
	delete(v.sessions, key)

	if at.Before(started) {
		return 0, true
	}
	return int64(at.Sub(started) / time.Minute), true
}

// EndedSession is a voice session closed by the tracker rather than by a leave
type EndedSession struct {
	GuildID   int64
	DiscordID int64
	Minutes   int64
}

// Prune closes sessions open longer than maxAge and returns them with their
// minutes capped at maxAge
func (v *VoiceTracker) Prune(now time.Time, maxAge time.Duration) []EndedSession {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := now.Add(-maxAge)
	var ended []EndedSession
	for key, started := range v.sessions {
		if started.Before(cutoff) {
			delete(v.sessions, key)
			ended = append(ended, EndedSession{
				GuildID:   key.guildID,
				DiscordID: key.discordID,
				Minutes:   int64(maxAge / time.Minute),
			})
		}
	}
	return ended
}

// Len returns the number of open sessions
func (v *VoiceTracker) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.sessions)
}

// InviteUse is the live use count of one invite code
type InviteUse struct {
	Code      string
	InviterID int64
	Uses      int
}

// InviteTracker caches invite use counts per guild so a member join can be
// attributed to the invite whose count went up.
type InviteTracker struct {
	mu     sync.Mutex
	guilds map[int64]map[string]InviteUse
}

func NewInviteTracker() *InviteTracker {
	return &InviteTracker{guilds: make(map[int64]map[string]InviteUse)}
}

// Seed replaces the cached counts for a guild
func (t *InviteTracker) Seed(guildID int64, uses []InviteUse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.guilds[guildID] = indexInvites(uses)
}

// Attribute compares current counts with the cache, stores current and
// returns the inviter of the single invite whose use count increased. A join
// that cannot be attributed to exactly one invite returns ok=false.
func (t *InviteTracker) Attribute(guildID int64, current []InviteUse) (inviterID int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	previous := t.guilds[guildID]
	t.guilds[guildID] = indexInvites(current)

	var candidates []InviteUse
	for _, use := range current {
		before, known := previous[use.Code]
		if (known && use.Uses > before.Uses) || (!known && use.Uses > 0) {
			candidates = append(candidates, use)
		}
	}
	if len(candidates) != 1 || candidates[0].InviterID == 0 {
		return 0, false
	}
	return candidates[0].InviterID, true
}

func indexInvites(uses []InviteUse) map[string]InviteUse {
	indexed := make(map[string]InviteUse, len(uses))
	for _, use := range uses {
		indexed[use.Code] = use
	}
	return indexed
}
