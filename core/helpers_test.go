package core

import "fmt"

// uniformScenario builds a scenario of n stations named a0..a(n-1), every
// pair connected with the given distance and every popularity set to pop.
func uniformScenario(n, dist, pop int) *Scenario {
	sc := &Scenario{
		StationNames: make([]string, n),
		Popularities: make([]int, n),
		Distances:    make([][]int, n),
	}
	for i := 0; i < n; i++ {
		sc.StationNames[i] = fmt.Sprintf("a%d", i)
		sc.Popularities[i] = pop
		sc.Distances[i] = make([]int, n)
		for j := 0; j < n; j++ {
			if i != j {
				sc.Distances[i][j] = dist
			}
		}
	}
	return sc
}
