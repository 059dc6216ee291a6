package views

import (
	"context"
	"sort"
	"strconv"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/middleware"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/google/uuid"
)

func GetPlayer(ctx context.Context) *players.Player {
	return middleware.GetAuthenticatedPlayer(ctx)
}

// slotLabel renders a match slot, TBD while it is still open.
func slotLabel(netid *string, participants map[string]bracket.Participant) string {
	if netid == nil {
		return "TBD"
	}
	p, ok := participants[*netid]
	if !ok || p.Seed == nil {
		return *netid
	}
	return "(" + strconv.Itoa(*p.Seed) + ") " + *netid
}

func roundTitle(format bracket.Format, side bracket.BracketSide, round, rounds int) string {
	switch {
	case side == bracket.GrandFinalsSide && round == 2:
		return "Bracket Reset"
	case side == bracket.GrandFinalsSide:
		return "Grand Finals"
	case format == bracket.SingleElimination && round == rounds && rounds > 1:
		return "Final"
	}
	return "Round " + strconv.Itoa(round)
}

func isWinner(slot, winner *string) bool {
	return slot != nil && winner != nil && *slot == *winner
}

func isNext(m bracket.Match, next *uuid.UUID) bool {
	return next != nil && *next == m.ID
}

// placedParticipants keeps only players with a final placement, best first.
func placedParticipants(participants []bracket.Participant) []bracket.Participant {
	placed := make([]bracket.Participant, 0, len(participants))
	for _, p := range participants {
		if p.Placement != nil {
			placed = append(placed, p)
		}
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return *placed[i].Placement < *placed[j].Placement
	})
	return placed
}
