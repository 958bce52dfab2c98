package standings

import (
	"fmt"
	"strconv"
	"strings"
)

// GameScore is one game of a match score, read from the perspective of the
// participant at position 1.
type GameScore struct {
	Home int
	Away int
}

// Flip returns the same game from the opposing side.
func (g GameScore) Flip() GameScore {
	return GameScore{Home: g.Away, Away: g.Home}
}

// ParseScore parses a recorded match score such as "21-15,18-21,21-10" into
// per-game point pairs. Whitespace around games and numbers is tolerated.
func ParseScore(raw string) ([]GameScore, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	games := make([]GameScore, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		home, away, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("invalid game score %q", part)
		}
		h, err := strconv.Atoi(strings.TrimSpace(home))
		if err != nil {
			return nil, fmt.Errorf("invalid game score %q: %w", part, err)
		}
		a, err := strconv.Atoi(strings.TrimSpace(away))
		if err != nil {
			return nil, fmt.Errorf("invalid game score %q: %w", part, err)
		}
		if h < 0 || a < 0 {
			return nil, fmt.Errorf("invalid game score %q: negative points", part)
		}
		games = append(games, GameScore{Home: h, Away: a})
	}
	return games, nil
}
