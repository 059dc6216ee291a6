package bracket

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	MinSelfRating = 1
	MaxSelfRating = 10

	// Self ratings are mapped onto the ELO scale as 700 + 100*rating, so a 5
	// lands at the default 1200 and the 1..10 range spans 800..1700.
	selfRatingBase  = 700
	selfRatingScale = 100

	eloWeightPerGame   = 0.09
	experiencedAtGames = 10
	maxEloWeight       = 0.9
)

// Entrant is a participant as seen by the seeding step.
type Entrant struct {
	Netid       string
	SelfRating  int
	GamesPlayed int
	Elo         int

	Seed  int
	Score float64
}

// SeedScore blends self-assessed skill with ELO. With no games played only the
// self rating counts, the ELO weight then grows by 0.09 per game and caps at
// 90% from the tenth game on.
func SeedScore(selfRating, elo, gamesPlayed int) float64 {
	eloWeight := 0.0
	switch {
	case gamesPlayed <= 0:
		eloWeight = 0
	case gamesPlayed < experiencedAtGames:
		eloWeight = float64(gamesPlayed) * eloWeightPerGame
	default:
		eloWeight = maxEloWeight
	}

	selfNormalized := float64(selfRatingBase + selfRatingScale*selfRating)
	return selfNormalized*(1-eloWeight) + float64(elo)*eloWeight
}

func ValidateSelfRating(selfRating int) error {
	if selfRating < MinSelfRating || selfRating > MaxSelfRating {
		return &ValidationError{
			Field:  "self_rating",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinSelfRating, MaxSelfRating, selfRating),
		}
	}
	return nil
}

// AssignSeeds orders entrants by seed score, highest first, and numbers them
// from 1. Equal scores keep the input order, which callers pass in signup order.
func AssignSeeds(entrants []Entrant) ([]Entrant, error) {
	if len(entrants) < 2 {
		return nil, &ValidationError{Field: "participants", Reason: fmt.Sprintf("need at least 2, got %d", len(entrants))}
	}

	seen := make(map[string]struct{}, len(entrants))
	seeded := make([]Entrant, len(entrants))
	for i, e := range entrants {
		if strings.TrimSpace(e.Netid) == "" {
			return nil, &GenerationError{Reason: fmt.Sprintf("entrant %d has no netid", i)}
		}
		if _, dup := seen[e.Netid]; dup {
			return nil, &GenerationError{Reason: "duplicate participant " + e.Netid}
		}
		seen[e.Netid] = struct{}{}

		if err := ValidateSelfRating(e.SelfRating); err != nil {
			return nil, err
		}

		e.Score = SeedScore(e.SelfRating, e.Elo, e.GamesPlayed)
		seeded[i] = e
	}

	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].Score > seeded[j].Score
	})
	for i := range seeded {
		seeded[i].Seed = i + 1
	}

	return seeded, nil
}

// BracketSize gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func BracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

func totalRounds(bracketSize int) int {
	if bracketSize <= 1 {
		return 0
	}
	return int(math.Log2(float64(bracketSize)))
}

// Round1Pairs returns zero-based seed pairs in bracket order, so for 8 slots
// 1v8, 4v5, 2v7, 3v6. Top seeds can only meet in later rounds.
func Round1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// ByeCount is the number of round 1 slots left empty. Byes always go to the
// highest seeds.
func ByeCount(participants int) int {
	return BracketSize(participants) - participants
}
