package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PlatformEvent is an event as reported by the platform's discovery API.
type PlatformEvent struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	StartDate      string    `json:"startDate"`
	EndDate        string    `json:"endDate,omitempty"`
	Location       string    `json:"location,omitempty"`
	GameType       int       `json:"gameType,omitempty"`
	PlayerCount    int       `json:"totalPlayers,omitempty"`
	RoundCount     int       `json:"numberOfRounds,omitempty"`
	IsTeamEvent    bool      `json:"teamEvent,omitempty"`
	HiddenPlacings bool      `json:"hidePlacings,omitempty"`
}

// PlatformPlayer is one registrant, joined into standings by id.
type PlatformPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Faction string `json:"faction,omitempty"`
	ListID  string `json:"armyListId,omitempty"`
}

// playersEnvelope is the /events/{id}/players response shape.
type playersEnvelope struct {
	Active  []PlatformPlayer `json:"active"`
	Deleted []PlatformPlayer `json:"deleted"`
}

// Game result codes used by the platform: 2 win, 1 draw, 0 loss.
const (
	codeLoss = 0
	codeDraw = 1
	codeWin  = 2
)

// PairingPlayer is one side of a pairing, inlined by the expand[] params.
type PairingPlayer struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Faction string    `json:"faction,omitempty"`
	Result  int       `json:"result"` // 2/1/0 win/draw/loss
	Points  FlexFloat `json:"gamePoints"`
}

// Outcome maps the numeric result code to its word form.
func (p PairingPlayer) Outcome() string {
	switch p.Result {
	case codeWin:
		return "win"
	case codeDraw:
		return "draw"
	default:
		return "loss"
	}
}

// PlatformPairing is one round's game between two players.
type PlatformPairing struct {
	ID      string        `json:"id"`
	EventID string        `json:"eventId"`
	Round   int           `json:"round"`
	Player1 PairingPlayer `json:"player1"`
	Player2 PairingPlayer `json:"player2"`
}

// FlexFloat decodes a JSON number or a numeric string. The platform emits
// game points both ways depending on the event's scoring config.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Standing is one recomputed final placement.
type Standing struct {
	Rank         int
	PlayerID     string
	PlayerName   string
	Faction      string
	ListID       string
	Wins         int
	Losses       int
	Draws        int
	BattlePoints float64
}
