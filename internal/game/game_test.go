package game

import (
	"testing"

	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestSinglesSides(t *testing.T) {
	g := &Game{Type: Singles, Player1: "a", Player2: "b", Winner: utils.Ptr("b")}

	assert.Equal(t, []string{"a", "b"}, g.Participants())
	assert.Equal(t, []string{"b"}, g.Winners())
	assert.Equal(t, []string{"a"}, g.Losers())
	assert.True(t, g.Won("b"))
	assert.False(t, g.Won("a"))
}

func TestDoublesSides(t *testing.T) {
	g := &Game{
		Type:        Doubles,
		Player1:     "a",
		Player2:     "b",
		Player3:     utils.Ptr("c"),
		Player4:     utils.Ptr("d"),
		WinningTeam: utils.Ptr(2),
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, g.Participants())
	assert.Equal(t, []string{"c", "d"}, g.Winners())
	assert.Equal(t, []string{"a", "b"}, g.Losers())
	assert.True(t, g.Won("d"))
}
