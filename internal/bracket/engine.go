package bracket

import (
	"fmt"
	"sort"

	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/google/uuid"
)

const (
	championStage = 1 << 20
	finalistStage = championStage - 1
)

// Bracket is the in-memory match arena of one tournament. It is not safe for
// concurrent use; callers serialize per tournament and persist the outcome.
type Bracket struct {
	tournamentID uuid.UUID
	format       Format
	bySeed       map[int]string
	seedOf       map[string]int
	layout       *layout

	matches []Match
	index   map[MatchKey]int
	byID    map[uuid.UUID]int
}

type Activation struct {
	Seeded  []Entrant
	Matches []Match
}

// Outcome is everything a reported result changed.
type Outcome struct {
	Match      Match
	Winner     string
	Loser      string
	Updated    []Match
	Created    []Match
	Eliminated []string
	Completed  bool
	Placements map[string]int
}

func newBracket(tournamentID uuid.UUID, format Format) *Bracket {
	return &Bracket{
		tournamentID: tournamentID,
		format:       format,
		bySeed:       make(map[int]string),
		seedOf:       make(map[string]int),
		index:        make(map[MatchKey]int),
		byID:         make(map[uuid.UUID]int),
	}
}

// Activate seeds the entrants and generates the full match skeleton. Byes are
// resolved immediately and never get a match record.
func Activate(tournamentID uuid.UUID, format Format, entrants []Entrant) (*Activation, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	seeded, err := AssignSeeds(entrants)
	if err != nil {
		return nil, err
	}

	b := newBracket(tournamentID, format)
	for _, e := range seeded {
		b.bySeed[e.Seed] = e.Netid
		b.seedOf[e.Netid] = e.Seed
	}

	if format == RoundRobin {
		for r, pairs := range roundRobinSchedule(len(seeded)) {
			for m, pair := range pairs {
				b.addMatch(mk(MainSide, r+1, m+1), b.bySeed[pair[0]], b.bySeed[pair[1]])
			}
		}
	} else {
		b.layout = newLayout(format, len(seeded))
		for _, key := range b.layout.playedKeys() {
			n := b.layout.nodes[key]
			p1, _ := b.sourcePlayer(n.slots[0])
			p2, _ := b.sourcePlayer(n.slots[1])
			b.addMatch(key, p1, p2)
		}
	}

	if len(b.matches) == 0 {
		return nil, &GenerationError{Reason: "no matches generated"}
	}

	return &Activation{Seeded: seeded, Matches: b.Matches()}, nil
}

// Load rebuilds a bracket from persisted state and checks that the stored
// matches fit the layout for the format and field size.
func Load(t *Tournament, participants []Participant, matches []Match) (*Bracket, error) {
	b := newBracket(t.ID, t.Format)

	for _, p := range participants {
		if p.Seed == nil {
			return nil, &GenerationError{Reason: "participant " + p.Netid + " has no seed"}
		}
		if _, dup := b.bySeed[*p.Seed]; dup {
			return nil, &GenerationError{Reason: fmt.Sprintf("seed %d assigned twice", *p.Seed)}
		}
		b.bySeed[*p.Seed] = p.Netid
		b.seedOf[p.Netid] = *p.Seed
	}
	for seed := 1; seed <= len(participants); seed++ {
		if _, ok := b.bySeed[seed]; !ok {
			return nil, &GenerationError{Reason: fmt.Sprintf("seed %d is missing", seed)}
		}
	}

	if t.Format != RoundRobin {
		b.layout = newLayout(t.Format, len(participants))
	}

	for _, m := range matches {
		key := m.Key()
		if _, dup := b.index[key]; dup {
			return nil, &StateConflictError{Key: key, Err: ErrUnexpectedMatch}
		}
		if b.layout != nil && !b.layout.allows(key) {
			return nil, &StateConflictError{Key: key, Err: ErrUnexpectedMatch}
		}
		b.push(m)
	}

	if b.layout != nil {
		for _, key := range b.layout.playedKeys() {
			if _, ok := b.index[key]; !ok {
				return nil, &StateConflictError{Key: key, Err: ErrMissingMatch}
			}
		}
	}

	return b, nil
}

func (l *layout) allows(key MatchKey) bool {
	if key == resetKey {
		return l.format == DoubleElimination
	}
	n, ok := l.nodes[key]
	return ok && n.played()
}

// Matches returns a copy of the arena in generation order.
func (b *Bracket) Matches() []Match {
	out := make([]Match, len(b.matches))
	copy(out, b.matches)
	return out
}

func (b *Bracket) Match(id uuid.UUID) (Match, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Match{}, false
	}
	return b.matches[i], true
}

func (b *Bracket) get(key MatchKey) *Match {
	i, ok := b.index[key]
	if !ok {
		return nil
	}
	return &b.matches[i]
}

func (b *Bracket) push(m Match) {
	b.matches = append(b.matches, m)
	b.index[m.Key()] = len(b.matches) - 1
	b.byID[m.ID] = len(b.matches) - 1
}

func (b *Bracket) addMatch(key MatchKey, p1, p2 string) Match {
	m := Match{
		ID:           uuid.New(),
		TournamentID: b.tournamentID,
		Side:         key.Side,
		RoundNumber:  key.Round,
		MatchNumber:  key.Match,
		Status:       MatchPending,
	}
	if p1 != "" {
		m.Player1 = utils.Ptr(p1)
	}
	if p2 != "" {
		m.Player2 = utils.Ptr(p2)
	}
	m.refreshStatus()
	b.push(m)
	return m
}

// sourcePlayer resolves who occupies a slot right now, passing through byes.
func (b *Bracket) sourcePlayer(s source) (string, bool) {
	switch s.kind {
	case fromSeed:
		netid, ok := b.bySeed[s.seed]
		return netid, ok
	case fromWinner, fromLoser:
		n, ok := b.layout.nodes[s.key]
		if !ok || n.live == 0 {
			return "", false
		}
		if !n.played() {
			if s.kind == fromLoser {
				return "", false
			}
			live, _ := b.layout.liveSource(n)
			return b.sourcePlayer(live)
		}
		m := b.get(s.key)
		if m == nil || !m.Completed() || m.Winner == nil {
			return "", false
		}
		if s.kind == fromWinner {
			return *m.Winner, true
		}
		return m.Loser(), true
	}
	return "", false
}

// Report records winner for the match and advances the bracket. On error the
// bracket is left exactly as it was.
func (b *Bracket) Report(matchID uuid.UUID, winner string) (*Outcome, error) {
	i, ok := b.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	m := &b.matches[i]
	key := m.Key()
	switch {
	case m.Completed():
		return nil, &StateConflictError{Key: key, Err: ErrMatchCompleted}
	case !m.IsReady():
		return nil, &StateConflictError{Key: key, Err: ErrMatchNotReady}
	case winner == "" || !m.HasPlayer(winner):
		return nil, &StateConflictError{Key: key, Err: ErrWinnerNotInMatch}
	}

	saved := b.Matches()

	m.Winner = utils.Ptr(winner)
	m.Status = MatchCompleted

	out := &Outcome{
		Winner: winner,
		Loser:  m.Loser(),
	}

	if b.layout != nil {
		updated, created, err := b.advance()
		if err != nil {
			b.restore(saved)
			return nil, err
		}
		out.Updated = updated
		out.Created = created
	}

	out.Match = b.matches[i]
	if b.eliminates(&out.Match) {
		out.Eliminated = []string{out.Loser}
	}
	if b.IsComplete() {
		out.Completed = true
		out.Placements = b.Placements()
	}

	return out, nil
}

func (b *Bracket) restore(saved []Match) {
	b.matches = nil
	b.index = make(map[MatchKey]int)
	b.byID = make(map[uuid.UUID]int)
	for _, m := range saved {
		b.push(m)
	}
}

// advance fills every TBD slot whose feeding match is now decided and creates
// grand finals matches once their players are known.
func (b *Bracket) advance() ([]Match, []Match, error) {
	var updated []Match
	for _, key := range b.layout.order {
		n := b.layout.nodes[key]
		if !n.played() || key.Side == GrandFinalsSide {
			continue
		}

		m := b.get(key)
		if m == nil {
			return nil, nil, &StateConflictError{Key: key, Err: ErrMissingMatch}
		}
		if m.Completed() {
			continue
		}

		changed := false
		for slot, s := range n.slots {
			netid, known := b.sourcePlayer(s)
			if !known {
				continue
			}
			current := m.Player1
			if slot == 1 {
				current = m.Player2
			}
			if current != nil {
				if *current != netid {
					return nil, nil, &StateConflictError{Key: key, Err: ErrSlotMismatch}
				}
				continue
			}
			if slot == 0 {
				m.Player1 = utils.Ptr(netid)
			} else {
				m.Player2 = utils.Ptr(netid)
			}
			changed = true
		}

		if changed {
			m.refreshStatus()
			updated = append(updated, *m)
		}
	}

	if b.format != DoubleElimination {
		return updated, nil, nil
	}
	return updated, b.advanceGrandFinals(), nil
}

// advanceGrandFinals plays a bracket reset: when the losers-side champion wins
// the first grand final, both players have one loss and meet again.
func (b *Bracket) advanceGrandFinals() []Match {
	gf := b.get(grandFinalKey)
	if gf == nil {
		n := b.layout.nodes[grandFinalKey]
		p1, ok1 := b.sourcePlayer(n.slots[0])
		p2, ok2 := b.sourcePlayer(n.slots[1])
		if ok1 && ok2 {
			return []Match{b.addMatch(grandFinalKey, p1, p2)}
		}
		return nil
	}

	if gf.Completed() && *gf.Winner == *gf.Player2 && b.get(resetKey) == nil {
		return []Match{b.addMatch(resetKey, *gf.Player1, *gf.Player2)}
	}
	return nil
}

// eliminates reports whether losing m knocks the loser out of the tournament.
func (b *Bracket) eliminates(m *Match) bool {
	if !m.Completed() {
		return false
	}
	switch b.format {
	case SingleElimination:
		return true
	case DoubleElimination:
		switch m.Side {
		case LosersSide:
			return true
		case GrandFinalsSide:
			return m.RoundNumber == resetKey.Round || *m.Winner == *m.Player1
		}
		// P = 2 has no losers side, the winners final loser goes straight to grand finals
	}
	return false
}

// IsComplete is true once the deciding match has been played and nothing is
// left open.
func (b *Bracket) IsComplete() bool {
	if len(b.matches) == 0 {
		return false
	}
	for _, m := range b.matches {
		if !m.Completed() {
			return false
		}
	}

	switch b.format {
	case RoundRobin:
		return true
	case SingleElimination:
		final := b.get(b.layout.finalKey())
		return final != nil && final.Completed()
	case DoubleElimination:
		gf := b.get(grandFinalKey)
		if gf == nil || !gf.Completed() {
			return false
		}
		if *gf.Winner == *gf.Player1 {
			return true
		}
		reset := b.get(resetKey)
		return reset != nil && reset.Completed()
	}
	return false
}

func (b *Bracket) Champion() (string, bool) {
	if !b.IsComplete() {
		return "", false
	}
	switch b.format {
	case SingleElimination:
		return *b.get(b.layout.finalKey()).Winner, true
	case DoubleElimination:
		if reset := b.get(resetKey); reset != nil {
			return *reset.Winner, true
		}
		return *b.get(grandFinalKey).Winner, true
	}
	standings := b.Placements()
	for netid, place := range standings {
		if place == 1 {
			return netid, true
		}
	}
	return "", false
}

// Placements returns final positions. Elimination formats rank by how late a
// player was knocked out and share a position within the same round. Round
// robin ranks by wins, then head-to-head wins inside the tied group, then seed,
// so no two players share a position.
func (b *Bracket) Placements() map[string]int {
	if b.format == RoundRobin {
		return b.roundRobinPlacements()
	}

	stages := make(map[string]int, len(b.seedOf))
	for _, m := range b.matches {
		if !b.eliminates(&m) {
			continue
		}
		stage := m.RoundNumber
		if m.Side == GrandFinalsSide {
			stage = finalistStage
		}
		stages[m.Loser()] = stage
	}
	if b.format == SingleElimination {
		final := b.get(b.layout.finalKey())
		if final != nil && final.Completed() {
			stages[final.Loser()] = finalistStage
			stages[*final.Winner] = championStage
		}
	} else if champion, ok := b.Champion(); ok {
		stages[champion] = championStage
	}

	placements := make(map[string]int, len(stages))
	for netid, stage := range stages {
		better := 0
		for _, other := range stages {
			if other > stage {
				better++
			}
		}
		placements[netid] = better + 1
	}
	return placements
}

// Standings orders round robin players by current placement. It is also
// meaningful before every match is in.
func (b *Bracket) Standings() []string {
	placements := b.roundRobinPlacements()
	netids := make([]string, 0, len(placements))
	for netid := range placements {
		netids = append(netids, netid)
	}
	sort.Slice(netids, func(i, j int) bool {
		return placements[netids[i]] < placements[netids[j]]
	})
	return netids
}

func (b *Bracket) roundRobinPlacements() map[string]int {
	wins := make(map[string]int, len(b.seedOf))
	beat := make(map[[2]string]bool)
	for _, m := range b.matches {
		if !m.Completed() {
			continue
		}
		wins[*m.Winner]++
		beat[[2]string{*m.Winner, m.Loser()}] = true
	}

	netids := make([]string, 0, len(b.seedOf))
	for seed := 1; seed <= len(b.bySeed); seed++ {
		netids = append(netids, b.bySeed[seed])
	}
	sort.SliceStable(netids, func(i, j int) bool {
		return wins[netids[i]] > wins[netids[j]]
	})

	for start := 0; start < len(netids); {
		end := start + 1
		for end < len(netids) && wins[netids[end]] == wins[netids[start]] {
			end++
		}
		group := netids[start:end]
		if len(group) > 1 {
			headToHead := make(map[string]int, len(group))
			for _, a := range group {
				for _, c := range group {
					if beat[[2]string{a, c}] {
						headToHead[a]++
					}
				}
			}
			sort.SliceStable(group, func(i, j int) bool {
				return headToHead[group[i]] > headToHead[group[j]]
			})
		}
		start = end
	}

	placements := make(map[string]int, len(netids))
	for i, netid := range netids {
		placements[netid] = i + 1
	}
	return placements
}
