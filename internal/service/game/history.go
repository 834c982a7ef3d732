package game

import "time"

const (
	LOG_GAME_STARTED   = "GameStarted"
	LOG_PHASE_CHANGED  = "PhaseChanged"
	LOG_EVENT_STARTED  = "EventStarted"
	LOG_EVENT_RESOLVED = "EventResolved"
	LOG_EVENT_CLEARED  = "EventCleared"
	LOG_TIEBREAKER     = "Tiebreaker"
	LOG_SPARED         = "Spared"
	LOG_PLAYER_DIED    = "PlayerDied"
	LOG_PLAYER_REVIVED = "PlayerRevived"
	LOG_ROLE_ASSIGNED  = "RoleAssigned"
	LOG_ITEM_GIVEN     = "ItemGiven"
	LOG_GAME_ENDED     = "GameEnded"
)

type HistoryEntry struct {
	Seq        int       `json:"seq"`
	Type       string    `json:"type"`
	PhaseIndex int       `json:"phaseIndex"`
	Phase      Phase     `json:"phase,omitempty"`
	Day        int       `json:"day"`
	EventID    string    `json:"eventId,omitempty"`
	Target     *int      `json:"target,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

func (g *Game) appendHistory(entry HistoryEntry) {
	entry.Seq = len(g.History) + 1
	entry.PhaseIndex = g.PhaseIndex
	entry.Phase = g.Phase()
	entry.Day = g.DayCount()
	entry.At = g.now()

	g.History = append(g.History, entry)
}

func (g *Game) logTarget(kind string, target int, eventID string, detail string) {
	g.appendHistory(HistoryEntry{
		Type:    kind,
		EventID: eventID,
		Target:  &target,
		Detail:  detail,
	})
}
