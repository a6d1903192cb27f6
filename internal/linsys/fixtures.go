package linsys

import "sort"

// Fixture is a small system with a recorded reference answer.
type Fixture struct {
	Name         string
	Description  string
	Coefficients [][]float64
	Constants    []float64
	Solution     []float64
}

// System builds the fixture's system. Fixture data is always valid.
func (f *Fixture) System() *System {
	s, err := New(f.Coefficients, f.Constants)
	if err != nil {
		panic(err)
	}
	return s
}

var Fixtures = map[string]*Fixture{
	"n1": {
		Name:         "n1",
		Description:  "single equation, no rounds",
		Coefficients: [][]float64{{4}},
		Constants:    []float64{2},
		Solution:     []float64{0.5},
	},
	"n3": {
		Name:        "n3",
		Description: "non-power-of-two size, forces a bootstrap fork",
		Coefficients: [][]float64{
			{1, 2, 3},
			{7, 7, 4},
			{5, 3, 7},
		},
		Constants: []float64{4, 9, 0},
		Solution:  []float64{-1.63492063492064, 2.98412698412698, -0.111111111111111},
	},
	"n4": {
		Name:        "n4",
		Description: "power-of-two size, forks in round 0 and 2",
		Coefficients: [][]float64{
			{1, 2, 3, 4},
			{7, 7, 4, 2},
			{5, 3, 7, 1},
			{3, 5, 9, 8},
		},
		Constants: []float64{4, 9, 0, 5},
		Solution:  []float64{2.02919708029197, -0.386861313868613, -1.54744525547445, 1.84671532846715},
	},
	"n5": {
		Name:        "n5",
		Description: "padded to eight with three empty slots",
		Coefficients: [][]float64{
			{1, 2, 3, 4, 7},
			{7, 7, 4, 2, 5},
			{5, 3, 7, 1, 6},
			{3, 5, 9, 8, 2},
			{7, 6, 8, 4, 3},
		},
		Constants: []float64{4, 9, 0, 5, 5},
		Solution: []float64{-0.00122324159021403, 1.48746177370031, -0.86177370030581,
			0.625688073394495, 0.158409785932722},
	},
	"n6": {
		Name:        "n6",
		Description: "large-magnitude answer",
		Coefficients: [][]float64{
			{7, 4, 6, 3, 2, 9},
			{4, 4, 5, 3, 4, 8},
			{6, 5, 5, 5, 4, 7},
			{3, 6, 3, 1, 7, 3},
			{2, 5, 2, 2, 3, 9},
			{3, 5, 4, 5, 7, 4},
		},
		Constants: []float64{2, 8, 5, 3, 2, 7},
		Solution: []float64{-33.375, 40.8916666666667, 42.65, 4.18333333333333,
			-32.9833333333333, -14.4916666666667},
	},
	"n7": {
		Name:        "n7",
		Description: "one slot of padding",
		Coefficients: [][]float64{
			{7, 4, 6, 3, 2, 9, 1},
			{4, 4, 5, 3, 4, 8, 4},
			{6, 5, 5, 5, 4, 7, 5},
			{3, 6, 3, 1, 7, 3, 1},
			{2, 5, 2, 2, 3, 9, 5},
			{3, 5, 4, 5, 7, 4, 4},
			{2, 7, 5, 6, 5, 1, 2},
		},
		Constants: []float64{2, 8, 5, 3, 2, 7, 3},
		Solution: []float64{-0.768620519565932, -1.31548010522854, 2.43546530746465,
			-0.888770141400855, 0.891072015784282, -0.271662282144031, 1.35859914501809},
	},
	"n8": {
		Name:        "n8",
		Description: "power-of-two size with zero coefficients",
		Coefficients: [][]float64{
			{1, 2, 3, 4, 5, 6, 7, 8},
			{1, 3, 9, 6, 8, 5, 7, 5},
			{9, 5, 1, 7, 8, 1, 5, 3},
			{3, 2, 5, 4, 0, 8, 2, 8},
			{8, 5, 3, 7, 7, 6, 3, 2},
			{4, 1, 2, 3, 5, 4, 4, 1},
			{6, 3, 2, 1, 0, 0, 1, 5},
			{5, 7, 1, 6, 6, 5, 2, 3},
		},
		Constants: []float64{1, 6, 7, 9, 2, 2, 9, 2},
		Solution: []float64{0.467568267594169, 12.4901391252868, 1.70086213276104, 7.41027159032043,
			-23.7865388884778, 0.31747206393843, 23.1808998741952, -13.0537445422926},
	},
}

func GetFixture(name string) *Fixture {
	return Fixtures[name]
}

// ListFixtures returns fixture names ordered by size.
func ListFixtures() []string {
	names := make([]string, 0, len(Fixtures))
	for name := range Fixtures {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return len(Fixtures[names[i]].Constants) < len(Fixtures[names[j]].Constants)
	})
	return names
}
