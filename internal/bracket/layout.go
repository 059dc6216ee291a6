package bracket

type sourceKind int

const (
	fromSeed sourceKind = iota + 1
	fromWinner
	fromLoser
)

// source is where a slot's player comes from.
type source struct {
	kind sourceKind
	seed int
	key  MatchKey
}

func seedOf(seed int) source { return source{kind: fromSeed, seed: seed} }
func winnerOf(key MatchKey) source { return source{kind: fromWinner, key: key} }
func loserOf(key MatchKey) source { return source{kind: fromLoser, key: key} }
func mk(side BracketSide, r, m int) MatchKey { return MatchKey{Side: side, Round: r, Match: m} }

type node struct {
	key   MatchKey
	slots [2]source
	// live is how many slots can ever receive a player. 2 is a played match,
	// 1 is a bye that passes its player through, 0 is an empty position.
	live int
}

func (n *node) played() bool { return n.live == 2 }

// layout is the full structural bracket for an elimination format, byes and
// empty positions included. It only depends on the format and the number of
// participants, so it can be rebuilt at any time instead of being stored.
type layout struct {
	format       Format
	entrants     int
	size         int
	rounds       int
	losersRounds int
	mainSide     BracketSide

	nodes map[MatchKey]*node
	order []MatchKey
}

func newLayout(format Format, entrants int) *layout {
	size := BracketSize(entrants)
	l := &layout{
		format:   format,
		entrants: entrants,
		size:     size,
		rounds:   totalRounds(size),
		mainSide: MainSide,
		nodes:    make(map[MatchKey]*node),
	}
	if format == DoubleElimination {
		l.mainSide = WinnersSide
		if l.rounds > 1 {
			l.losersRounds = 2 * (l.rounds - 1)
		}
	}

	l.buildMain()
	if format == DoubleElimination {
		l.buildLosers()
		l.buildGrandFinals()
	}
	l.computeLive()
	return l
}

func (l *layout) add(key MatchKey, a, b source) {
	l.nodes[key] = &node{key: key, slots: [2]source{a, b}}
	l.order = append(l.order, key)
}

func (l *layout) buildMain() {
	pairs := Round1Pairs(l.size)
	for m, pair := range pairs {
		l.add(mk(l.mainSide, 1, m+1), seedOf(pair[0]+1), seedOf(pair[1]+1))
	}
	for r := 2; r <= l.rounds; r++ {
		for m := 1; m <= l.size>>r; m++ {
			l.add(mk(l.mainSide, r, m), winnerOf(mk(l.mainSide, r-1, 2*m-1)), winnerOf(mk(l.mainSide, r-1, 2*m)))
		}
	}
}

// buildLosers lays out 2(k-1) rounds for a bracket of 2^k. Odd rounds pair
// losers-side winners with each other (round 1 pairs winners-side round 1
// losers), even round 2j takes the round 2j-1 winners in slot 1 and the
// losers dropping from winners round j+1 in slot 2. Drop-downs are reversed
// on odd j so a player does not immediately meet the opponent who just beat
// them.
func (l *layout) buildLosers() {
	if l.losersRounds == 0 {
		return
	}

	for m := 1; m <= l.size/4; m++ {
		l.add(mk(LosersSide, 1, m), loserOf(mk(WinnersSide, 1, 2*m-1)), loserOf(mk(WinnersSide, 1, 2*m)))
	}

	for j := 1; j <= l.rounds-1; j++ {
		round := 2 * j
		count := l.size >> (j + 1)
		for m := 1; m <= count; m++ {
			drop := m
			if j%2 == 1 {
				drop = count + 1 - m
			}
			l.add(mk(LosersSide, round, m), winnerOf(mk(LosersSide, round-1, m)), loserOf(mk(WinnersSide, j+1, drop)))
		}

		if round == l.losersRounds {
			break
		}
		for m := 1; m <= count/2; m++ {
			l.add(mk(LosersSide, round+1, m), winnerOf(mk(LosersSide, round, 2*m-1)), winnerOf(mk(LosersSide, round, 2*m)))
		}
	}
}

func (l *layout) buildGrandFinals() {
	wbFinal := mk(WinnersSide, l.rounds, 1)
	if l.losersRounds == 0 {
		l.add(grandFinalKey, winnerOf(wbFinal), loserOf(wbFinal))
		return
	}
	l.add(grandFinalKey, winnerOf(wbFinal), winnerOf(mk(LosersSide, l.losersRounds, 1)))
}

var (
	grandFinalKey = MatchKey{Side: GrandFinalsSide, Round: 1, Match: 1}
	resetKey      = MatchKey{Side: GrandFinalsSide, Round: 2, Match: 1}
)

// computeLive works in insertion order, which already follows dependencies.
func (l *layout) computeLive() {
	for _, key := range l.order {
		n := l.nodes[key]
		n.live = 0
		for _, s := range n.slots {
			if l.sourceLive(s) {
				n.live++
			}
		}
	}
}

func (l *layout) sourceLive(s source) bool {
	switch s.kind {
	case fromSeed:
		return s.seed <= l.entrants
	case fromWinner:
		n, ok := l.nodes[s.key]
		return ok && n.live >= 1
	case fromLoser:
		n, ok := l.nodes[s.key]
		return ok && n.live == 2
	}
	return false
}

// liveSource is the single live slot of a bye node.
func (l *layout) liveSource(n *node) (source, bool) {
	for _, s := range n.slots {
		if l.sourceLive(s) {
			return s, true
		}
	}
	return source{}, false
}

func (l *layout) finalKey() MatchKey {
	if l.format == DoubleElimination {
		return grandFinalKey
	}
	return mk(MainSide, l.rounds, 1)
}

// playedKeys returns every position that needs a match record at activation.
// Grand finals are created later, once both finalists are known.
func (l *layout) playedKeys() []MatchKey {
	keys := make([]MatchKey, 0, len(l.order))
	for _, key := range l.order {
		if key.Side == GrandFinalsSide {
			continue
		}
		if l.nodes[key].played() {
			keys = append(keys, key)
		}
	}
	return keys
}
