// Demo cohort generation using layered simplex noise.
// Samples reputation, treasury, wallets and peer ratings from independent
// noise layers so a given seed always yields the same league.
package seed

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
)

// GenConfig holds cohort generation parameters.
type GenConfig struct {
	Seed             int64 // 0 = random
	Classes          int
	AgenciesPerClass int
	MembersPerAgency int
	BenchStudents    int
}

// DefaultGenConfig returns a classroom-sized league.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Classes:          2,
		AgenciesPerClass: 4,
		MembersPerAgency: 3,
		BenchStudents:    2,
	}
}

// SmallTestConfig returns a tiny deterministic league.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Seed:             42,
		Classes:          1,
		AgenciesPerClass: 2,
		MembersPerAgency: 2,
		BenchStudents:    1,
	}
}

var studioWords = []string{
	"Pixel", "Forge", "Atlas", "Nova", "Ember", "Quartz", "Orbit", "Lumen",
	"Vertex", "Cobalt", "Prism", "Delta", "Kinetic", "Northwind", "Signal", "Fathom",
}

var firstNames = []string{
	"Alex", "Camille", "Sacha", "Noa", "Jules", "Robin", "Eden", "Charlie",
	"Lou", "Maxime", "Andrea", "Dominique", "Ange", "Claude", "Morgan", "Sam",
}

// Generate creates a complete league: agencies with members and pending peer
// reviews, plus the bench pool.
func Generate(cfg GenConfig, p policy.Policy) []*agency.Agency {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Independent layers per attribute.
	veNoise := opensimplex.NewNormalized(seed)
	budgetNoise := opensimplex.NewNormalized(seed + 1)
	walletNoise := opensimplex.NewNormalized(seed + 2)
	ratingNoise := opensimplex.NewNormalized(seed + 3)

	ns := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "studio-league/%d", seed))
	studentN := 0
	newStudent := func(x, y float64) agency.Student {
		studentN++
		return agency.Student{
			ID:              uuid.NewSHA1(ns, fmt.Appendf(nil, "student/%d", studentN)).String(),
			Name:            fmt.Sprintf("%s %c.", firstNames[(studentN*7)%len(firstNames)], 'A'+rune(studentN%26)),
			IndividualScore: 50,
			Wallet:          int64(lerp(100, 1200, octaveNoise(walletNoise, x, y, 2, 1.7, 0.5))),
			Karma:           50,
		}
	}

	var out []*agency.Agency
	for c := range cfg.Classes {
		classID := fmt.Sprintf("class-%d", c+1)
		for i := range cfg.AgenciesPerClass {
			x, y := float64(c)*3.1, float64(i)*1.3
			ve := int(math.Round(lerp(25, 75, octaveNoise(veNoise, x, y, 3, 0.9, 0.5))))
			budget := int64(math.Round(lerp(-1500, 4500, octaveNoise(budgetNoise, x, y, 3, 0.9, 0.5))/50) * 50)

			a := &agency.Agency{
				ID:         uuid.NewSHA1(ns, fmt.Appendf(nil, "agency/%d/%d", c, i)).String(),
				Name:       studioWords[(c*cfg.AgenciesPerClass+i)%len(studioWords)] + " Studio",
				ClassID:    classID,
				BudgetReal: budget,
				Progress: map[string]agency.WeekState{
					agency.WeekKey(1): {Deliverables: []agency.Deliverable{{
						ID:     uuid.NewSHA1(ns, fmt.Appendf(nil, "deliverable/%d/%d/1", c, i)).String(),
						Title:  "Creative brief",
						Status: agency.DeliverablePending,
					}}},
				},
			}
			for m := range cfg.MembersPerAgency {
				a.Members = append(a.Members, newStudent(x, y+float64(m)*0.7))
			}
			a.VECurrent = p.ClampVE(a, ve)
			a.Status = p.StatusFor(a.VECurrent)
			a.PeerReviews = peerReviews(a, ratingNoise, x, y)
			out = append(out, a)
		}
	}

	bench := &agency.Agency{
		ID:       agency.BenchID,
		Name:     "Unemployed",
		Status:   agency.StatusCritique,
		Progress: map[string]agency.WeekState{},
	}
	for b := range cfg.BenchStudents {
		bench.Members = append(bench.Members, newStudent(-1, float64(b)))
	}
	return append(out, bench)
}

// peerReviews has every member rate every teammate once.
func peerReviews(a *agency.Agency, noise opensimplex.Noise, x, y float64) []agency.PeerReview {
	var out []agency.PeerReview
	for i, from := range a.Members {
		for j, to := range a.Members {
			if i == j {
				continue
			}
			px, py := x+float64(i)*0.37, y+float64(j)*0.53
			out = append(out, agency.PeerReview{
				ReviewerID:  from.ID,
				TargetID:    to.ID,
				WeekID:      agency.WeekKey(1),
				Attendance:  rating(noise, px, py),
				Quality:     rating(noise, px+11, py),
				Involvement: rating(noise, px, py+11),
			})
		}
	}
	return out
}

// rating maps noise onto a 1–5 scale in half steps.
func rating(noise opensimplex.Noise, x, y float64) float64 {
	return math.Round(lerp(1, 5, octaveNoise(noise, x, y, 2, 1.1, 0.5))*2) / 2
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for range octaves {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}

func lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*math.Min(math.Max(t, 0), 1)
}
