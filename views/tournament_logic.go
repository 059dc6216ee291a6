package views

import (
	"sort"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
)

type Section struct {
	Side      bracket.BracketSide
	Rounds    map[int][]bracket.Match
	RoundNums []int
}

type BracketData struct {
	Format         bracket.Format
	Sections       []Section
	ParticipantMap map[string]bracket.Participant
}

var sideOrder = []bracket.BracketSide{
	bracket.MainSide,
	bracket.WinnersSide,
	bracket.LosersSide,
	bracket.GrandFinalsSide,
}

func PrepareBracketData(format bracket.Format, participants []bracket.Participant, matches []bracket.Match) BracketData {
	participantMap := make(map[string]bracket.Participant, len(participants))
	for _, p := range participants {
		participantMap[p.Netid] = p
	}

	bySide := make(map[bracket.BracketSide]map[int][]bracket.Match)
	for _, m := range matches {
		rounds, ok := bySide[m.Side]
		if !ok {
			rounds = make(map[int][]bracket.Match)
			bySide[m.Side] = rounds
		}
		rounds[m.RoundNumber] = append(rounds[m.RoundNumber], m)
	}

	var sections []Section
	for _, side := range sideOrder {
		rounds, ok := bySide[side]
		if !ok {
			continue
		}
		roundNums := make([]int, 0, len(rounds))
		for r := range rounds {
			roundNums = append(roundNums, r)
		}
		sort.Ints(roundNums)
		sortRounds(rounds, roundNums)

		sections = append(sections, Section{Side: side, Rounds: rounds, RoundNums: roundNums})
	}

	return BracketData{
		Format:         format,
		Sections:       sections,
		ParticipantMap: participantMap,
	}
}

func sortRounds(rounds map[int][]bracket.Match, roundNums []int) {
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].MatchNumber < rounds[r][j].MatchNumber
		})
	}
}
