package rating

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidKFactor     = errors.New("k-factor must be a positive finite number")
	ErrInvalidDefault     = errors.New("default rating must be positive")
	ErrInvalidWinningTeam = errors.New("winning team must be 1 or 2")
)

// Config is passed into every rating call so the engine stays free of globals.
type Config struct {
	KFactor       float64
	DefaultRating int
}

func DefaultConfig() Config {
	return Config{KFactor: 32, DefaultRating: 1200}
}

func (c Config) Validate() error {
	if math.IsNaN(c.KFactor) || math.IsInf(c.KFactor, 0) || c.KFactor <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidKFactor, c.KFactor)
	}
	if c.DefaultRating <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDefault, c.DefaultRating)
	}
	return nil
}

type SinglesResult struct {
	NewWinner int
	NewLoser  int
	Delta     int
}

type DoublesResult struct {
	Delta       int
	Team1       [2]int
	Team2       [2]int
	Team1Avg    int
	Team2Avg    int
	WinningTeam int
}

// ExpectedScore is the probability that a player rated a beats a player rated b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// Delta is the amount the winner gains and the loser drops. Never negative.
func Delta(k float64, winnerRating, loserRating int) int {
	return int(math.Round(k * (1 - ExpectedScore(winnerRating, loserRating))))
}

func ApplySingles(cfg Config, winnerRating, loserRating int) (SinglesResult, error) {
	if err := cfg.Validate(); err != nil {
		return SinglesResult{}, err
	}

	delta := Delta(cfg.KFactor, winnerRating, loserRating)
	return SinglesResult{
		NewWinner: winnerRating + delta,
		NewLoser:  loserRating - delta,
		Delta:     delta,
	}, nil
}

// TeamAverage truncates odd sums, so a team can sit up to half a point below
// its true mean. The asymmetry is at most one rating point per game.
func TeamAverage(ratings [2]int) int {
	return (ratings[0] + ratings[1]) / 2
}

// ApplyDoubles rates the two team averages against each other and moves every
// player by the same delta. A weaker player on a strong team gains or loses
// exactly what their partner does.
func ApplyDoubles(cfg Config, team1, team2 [2]int, winningTeam int) (DoublesResult, error) {
	if err := cfg.Validate(); err != nil {
		return DoublesResult{}, err
	}
	if winningTeam != 1 && winningTeam != 2 {
		return DoublesResult{}, fmt.Errorf("%w: got %d", ErrInvalidWinningTeam, winningTeam)
	}

	avg1 := TeamAverage(team1)
	avg2 := TeamAverage(team2)

	var delta int
	if winningTeam == 1 {
		delta = Delta(cfg.KFactor, avg1, avg2)
	} else {
		delta = Delta(cfg.KFactor, avg2, avg1)
	}

	sign1, sign2 := 1, -1
	if winningTeam == 2 {
		sign1, sign2 = -1, 1
	}

	return DoublesResult{
		Delta:       delta,
		Team1:       [2]int{team1[0] + sign1*delta, team1[1] + sign1*delta},
		Team2:       [2]int{team2[0] + sign2*delta, team2[1] + sign2*delta},
		Team1Avg:    avg1,
		Team2Avg:    avg2,
		WinningTeam: winningTeam,
	}, nil
}
