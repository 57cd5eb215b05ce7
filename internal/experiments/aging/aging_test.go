package aging

import (
	"math/rand/v2"
	"testing"

	"evolab/internal/core"
	"evolab/pkg/genome"
	"evolab/pkg/sim"
)

func TestYoungOrganismsNeverDie(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeathChance = 1
	rules := (&Aging{cfg: cfg}).Rules()
	rng := rand.New(rand.NewPCG(1, 0))
	for age := 0; age <= cfg.MatureAge; age++ {
		org := &sim.Organism[Body]{Genes: genome.MustParse("GG"), Body: Body{Age: age}}
		if rules.Death(org, sim.Static{}, rng) {
			t.Fatalf("organism of age %d should not die", age)
		}
	}
	old := &sim.Organism[Body]{Genes: genome.MustParse("GG"), Body: Body{Age: cfg.MatureAge + 1}}
	if !rules.Death(old, sim.Static{}, rng) {
		t.Fatal("mature organism should die with chance 1")
	}
}

func TestUpdateAgesEveryTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeathChance = 0
	rules := (&Aging{cfg: cfg}).Rules()
	rng := rand.New(rand.NewPCG(3, 0))
	genomes := []genome.Genome{genome.MustParse("GGCC"), genome.MustParse("CCTA"), genome.MustParse("TTTT")}
	s, err := sim.New(sim.Config{Capacity: 10, MaxTicks: 3}, rules, sim.Static{}, rng, sim.Spawn(rules, genomes, rng))
	if err != nil {
		t.Fatal(err)
	}
	s.Run(0)
	if s.Len() != 3 {
		t.Fatalf("expected all 3 organisms to survive, got %d", s.Len())
	}
	for _, org := range s.Organisms() {
		if org.Body.Age != 3 {
			t.Fatalf("organism %s should be 3 ticks old, got %d", org.Genes, org.Body.Age)
		}
	}
}

func TestChildrenStartAtAgeZeroBeforeUpdate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Population = 0
	cfg.Rates = genome.Rates{}
	a := New(cfg)
	rules := a.Rules()
	rng := rand.New(rand.NewPCG(2, 0))
	seed := sim.Spawn(rules, []genome.Genome{genome.MustParse("ATATGG")}, rng)
	s, err := sim.New(sim.Config{Capacity: 100, MaxTicks: 1}, rules, sim.Static{}, rng, seed)
	if err != nil {
		t.Fatal(err)
	}
	s.Step()
	ages := map[int]int{}
	for _, org := range s.Organisms() {
		ages[org.Body.Age]++
	}
	if s.Len() != 3 || ages[1] != 3 {
		t.Fatalf("expected parent and two children all aged 1 after one tick, got %v", ages)
	}
}

func TestMetrics(t *testing.T) {
	f, err := core.Lookup("aging")
	if err != nil {
		t.Fatal(err)
	}
	exp := f(map[string]string{"ticks": "4"})
	exp.Step()
	ms := exp.Metrics()
	mean, ok := core.MetricValue(ms, "age_mean")
	if !ok {
		t.Fatal("missing age_mean")
	}
	if exp.Population() > 0 && mean != 1 {
		t.Fatalf("after one tick every organism is age 1, got mean %v", mean)
	}
}
