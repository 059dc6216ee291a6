package bracket

// roundRobinSchedule uses the circle method: seed 1 stays put while everyone
// else rotates one place per round. An odd field gets a phantom seed 0, and
// whoever meets it sits the round out. Every pair meets exactly once and no
// seed appears twice in a round.
func roundRobinSchedule(n int) [][][2]int {
	if n < 2 {
		return nil
	}

	circle := make([]int, 0, n+1)
	for seed := 1; seed <= n; seed++ {
		circle = append(circle, seed)
	}
	if n%2 == 1 {
		circle = append(circle, 0)
	}
	size := len(circle)

	rounds := make([][][2]int, 0, size-1)
	for r := 0; r < size-1; r++ {
		var pairs [][2]int
		for i := 0; i < size/2; i++ {
			a, b := circle[i], circle[size-1-i]
			if a == 0 || b == 0 {
				continue
			}
			if a > b {
				a, b = b, a
			}
			pairs = append(pairs, [2]int{a, b})
		}
		rounds = append(rounds, pairs)

		next := make([]int, 0, size)
		next = append(next, circle[0], circle[size-1])
		next = append(next, circle[1:size-1]...)
		circle = next
	}

	return rounds
}
