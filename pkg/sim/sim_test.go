package sim

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"evolab/pkg/genome"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

type tagged struct {
	id  int
	age int
}

// idRules hands out unique ids to every built organism so tests can tell
// organisms apart after merging.
func idRules(children int) (Rules[tagged, Static], *int) {
	next := 0
	return Rules[tagged, Static]{
		Death: func(*Organism[tagged], Static, *rand.Rand) bool { return false },
		Reproduce: func(org *Organism[tagged], _ Static, rng *rand.Rand) []genome.Genome {
			out := make([]genome.Genome, children)
			for i := range out {
				out[i] = genome.Mutate(org.Genes, rng, 0.01, 0.01, 0.05)
				if len(out[i]) == 0 {
					out[i] = org.Genes.Clone()
				}
			}
			return out
		},
		Build: func(genome.Genome, *rand.Rand) tagged {
			next++
			return tagged{id: next}
		},
		Update: func(org *Organism[tagged], _ Static, _ *rand.Rand) { org.Body.age++ },
	}, &next
}

func seedOrganisms[P any, E Environment](rules Rules[P, E], rng *rand.Rand, g genome.Genome, n int) []Organism[P] {
	genomes := make([]genome.Genome, n)
	for i := range genomes {
		genomes[i] = g.Clone()
	}
	return Spawn(rules, genomes, rng)
}

func TestScenarioTwoSeedsDoubleReproduction(t *testing.T) {
	rng := newRand(1)
	rules, _ := idRules(2)
	seed := seedOrganisms(rules, rng, genome.MustParse("ATAT"), 2)

	s, err := New(Config{Capacity: 400, MaxTicks: 10, Strict: true}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Step()

	if got := s.Len(); got != 6 {
		t.Fatalf("expected 2 survivors + 4 children = 6, got %d", got)
	}
	if s.Tick() != 1 {
		t.Fatalf("expected tick 1, got %d", s.Tick())
	}
}

func TestCapacityInvariantBothPolicies(t *testing.T) {
	for _, policy := range []MergePolicy{MergeTruncate, MergePool} {
		t.Run(string(policy), func(t *testing.T) {
			rng := newRand(2)
			rules, _ := idRules(3)
			seed := seedOrganisms(rules, rng, genome.MustParse("ACGTACGT"), 10)
			s, err := New(Config{Capacity: 50, MaxTicks: 30, Merge: policy, Strict: true}, rules, Static{}, rng, seed)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			for !s.Done() {
				s.Step()
				if s.Len() > s.Capacity() {
					t.Fatalf("tick %d: population %d exceeds capacity %d", s.Tick(), s.Len(), s.Capacity())
				}
			}
			if s.Len() != 50 {
				t.Fatalf("immortal doubling population should saturate at 50, got %d", s.Len())
			}
		})
	}
}

func TestTruncateNeverEvictsSurvivors(t *testing.T) {
	rng := newRand(3)
	rules, _ := idRules(5)
	seed := seedOrganisms(rules, rng, genome.MustParse("GGGG"), 4)
	s, err := New(Config{Capacity: 6, MaxTicks: 1}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	before := map[int]bool{}
	for _, o := range s.Organisms() {
		before[o.Body.id] = true
	}
	s.Step()
	if s.Len() != 6 {
		t.Fatalf("expected capacity-filled population of 6, got %d", s.Len())
	}
	kept := 0
	for _, o := range s.Organisms() {
		if before[o.Body.id] {
			kept++
		}
	}
	if kept != 4 {
		t.Fatalf("expected all 4 survivors kept under truncate, got %d", kept)
	}
}

func TestTruncateDropsChildrenWhenSurvivorsFillCapacity(t *testing.T) {
	rng := newRand(4)
	rules, next := idRules(2)
	seed := seedOrganisms(rules, rng, genome.MustParse("GGGG"), 3)
	s, err := New(Config{Capacity: 3, MaxTicks: 1}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	built := *next
	s.Step()
	if s.Len() != 3 {
		t.Fatalf("expected 3 survivors, got %d", s.Len())
	}
	for _, o := range s.Organisms() {
		if o.Body.id > built {
			t.Fatalf("child %d admitted although survivors filled capacity", o.Body.id)
		}
	}
}

func TestPoolDownSampleIsSubsetWithoutDuplicates(t *testing.T) {
	rng := newRand(5)
	rules, _ := idRules(4)
	seed := seedOrganisms(rules, rng, genome.MustParse("ATATGC"), 20)
	s, err := New(Config{Capacity: 25, MaxTicks: 1, Merge: MergePool, Strict: true}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	pool := append([]Organism[tagged](nil), s.Organisms()...)
	survivors, children := pool, []Organism[tagged]{}
	for i := 0; i < 80; i++ {
		children = append(children, Organism[tagged]{Genes: genome.MustParse("A"), Body: tagged{id: 1000 + i}})
	}
	combined := append(append([]Organism[tagged](nil), survivors...), children...)
	valid := map[int]bool{}
	for _, o := range combined {
		valid[o.Body.id] = true
	}

	got := s.mergePopulation(survivors, children)
	if len(got) != 25 {
		t.Fatalf("expected exactly 25 after down-sampling, got %d", len(got))
	}
	seen := map[int]bool{}
	for _, o := range got {
		if !valid[o.Body.id] {
			t.Fatalf("organism %d was not in the pre-sampling set", o.Body.id)
		}
		if seen[o.Body.id] {
			t.Fatalf("organism %d sampled twice", o.Body.id)
		}
		seen[o.Body.id] = true
	}
}

func TestPoolDownSampleCanEvictSurvivors(t *testing.T) {
	evicted := false
	for seed := uint64(0); seed < 20 && !evicted; seed++ {
		rng := newRand(seed)
		rules, _ := idRules(4)
		initial := seedOrganisms(rules, rng, genome.MustParse("CCCC"), 10)
		s, err := New(Config{Capacity: 10, MaxTicks: 1, Merge: MergePool}, rules, Static{}, rng, initial)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		s.Step()
		for _, o := range s.Organisms() {
			if o.Body.id > 10 {
				evicted = true
				break
			}
		}
	}
	if !evicted {
		t.Fatal("pooled merge never admitted a child over a full survivor set")
	}
}

func TestBuildNeverSeesEmptyGenome(t *testing.T) {
	rng := newRand(6)
	builds := 0
	rules := Rules[int, Static]{
		Death: func(_ *Organism[int], _ Static, rng *rand.Rand) bool { return rng.Float64() < 0.3 },
		Reproduce: func(org *Organism[int], _ Static, rng *rand.Rand) []genome.Genome {
			out := []genome.Genome{genome.Mutate(org.Genes, rng, 0.05, 0.4, 0.1)}
			if rng.IntN(3) == 0 {
				out = append(out, genome.Genome{})
			}
			return out
		},
		Build: func(g genome.Genome, _ *rand.Rand) int {
			if len(g) == 0 {
				t.Fatal("Build invoked with empty genome")
			}
			builds++
			return len(g)
		},
	}
	seed := seedOrganisms(rules, rng, genome.MustParse("ACGTAC"), 40)
	s, err := New(Config{Capacity: 200, MaxTicks: 60, Strict: true}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Run(0)
	if builds == 0 {
		t.Fatal("expected at least one child to be built")
	}
}

type recordingEnv struct {
	events *[]string
}

func (e recordingEnv) Advance(*rand.Rand) { *e.events = append(*e.events, "advance") }

func TestAdvanceOncePerTickBeforeUpdates(t *testing.T) {
	var events []string
	env := recordingEnv{events: &events}
	rules := Rules[struct{}, recordingEnv]{
		Death: func(*Organism[struct{}], recordingEnv, *rand.Rand) bool { return false },
		Reproduce: func(*Organism[struct{}], recordingEnv, *rand.Rand) []genome.Genome {
			return nil
		},
		Build: func(genome.Genome, *rand.Rand) struct{} { return struct{}{} },
		Learn: func(_ *Organism[struct{}], e recordingEnv, _ *rand.Rand) {
			*e.events = append(*e.events, "learn")
		},
		Update: func(_ *Organism[struct{}], e recordingEnv, _ *rand.Rand) {
			*e.events = append(*e.events, "update")
		},
	}
	rng := newRand(7)
	seed := seedOrganisms(rules, rng, genome.MustParse("AC"), 3)
	s, err := New(Config{Capacity: 10, MaxTicks: 4}, rules, env, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Run(0)

	want := strings.Repeat("advance learn update learn update learn update ", 4)
	if got := strings.Join(events, " ") + " "; got != want {
		t.Fatalf("unexpected call order:\n got %q\nwant %q", got, want)
	}
}

func TestEmptyPopulationKeepsTicking(t *testing.T) {
	var events []string
	env := recordingEnv{events: &events}
	rules := Rules[int, recordingEnv]{
		Death: func(*Organism[int], recordingEnv, *rand.Rand) bool {
			t.Fatal("Death called on empty population")
			return true
		},
		Reproduce: func(*Organism[int], recordingEnv, *rand.Rand) []genome.Genome { return nil },
		Build:     func(genome.Genome, *rand.Rand) int { return 0 },
	}
	s, err := New(Config{Capacity: 5, MaxTicks: 7}, rules, env, newRand(8), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Run(0)
	if s.Tick() != 7 || !s.Done() {
		t.Fatalf("expected run to reach tick 7, got %d", s.Tick())
	}
	if len(events) != 7 {
		t.Fatalf("expected 7 environment advances, got %d", len(events))
	}
}

func TestDeterministicTrajectories(t *testing.T) {
	trajectory := func() []string {
		rng := newRand(42)
		rules := Rules[int, Static]{
			Death: func(_ *Organism[int], _ Static, rng *rand.Rand) bool { return rng.Float64() < 0.4 },
			Reproduce: func(org *Organism[int], _ Static, rng *rand.Rand) []genome.Genome {
				return []genome.Genome{
					genome.Mutate(org.Genes, rng, 0.1, 0.1, 0.33),
					genome.Mutate(org.Genes, rng, 0.1, 0.1, 0.33),
				}
			},
			Build: func(g genome.Genome, _ *rand.Rand) int { return len(g) },
		}
		initial := make([]genome.Genome, 30)
		for i := range initial {
			initial[i] = genome.Random(rng, 8)
		}
		s, err := New(Config{Capacity: 60, MaxTicks: 40, Merge: MergePool}, rules, Static{}, rng, Spawn(rules, initial, rng))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		var out []string
		for !s.Done() {
			s.Step()
			var sb strings.Builder
			for _, g := range s.Genomes() {
				sb.WriteString(g.String())
				sb.WriteByte(',')
			}
			out = append(out, sb.String())
		}
		return out
	}

	a, b := trajectory(), trajectory()
	if len(a) != len(b) {
		t.Fatalf("trajectory lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("trajectories diverged at tick %d", i+1)
		}
	}
}

func TestNewValidatesRules(t *testing.T) {
	_, err := New(Config{Capacity: 1}, Rules[int, Static]{}, Static{}, newRand(1), nil)
	if !errors.Is(err, ErrMissingRule) {
		t.Fatalf("expected ErrMissingRule, got %v", err)
	}
	rules := Rules[int, Static]{
		Death:     func(*Organism[int], Static, *rand.Rand) bool { return false },
		Reproduce: func(*Organism[int], Static, *rand.Rand) []genome.Genome { return nil },
		Build:     func(genome.Genome, *rand.Rand) int { return 0 },
	}
	if _, err := New(Config{Capacity: -1}, rules, Static{}, newRand(1), nil); err == nil {
		t.Fatal("expected negative capacity error")
	}
	if _, err := New(Config{Capacity: 1}, rules, Static{}, nil, nil); err == nil {
		t.Fatal("expected missing rng error")
	}
	if _, err := New(Config{Capacity: 1, Merge: "bogus"}, rules, Static{}, newRand(1), nil); err == nil {
		t.Fatal("expected merge policy error")
	}
}

func TestRunLogsGenomesAtCadence(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rules := Rules[int, Static]{
		Death:     func(*Organism[int], Static, *rand.Rand) bool { return false },
		Reproduce: func(*Organism[int], Static, *rand.Rand) []genome.Genome { return nil },
		Build:     func(genome.Genome, *rand.Rand) int { return 0 },
	}
	rng := newRand(9)
	seed := seedOrganisms(rules, rng, genome.MustParse("GATC"), 1)
	s, err := New(Config{Capacity: 5, MaxTicks: 6, Logger: logger}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Run(3)
	out := buf.String()
	if got := strings.Count(out, "msg=population"); got != 2 {
		t.Fatalf("expected 2 population dumps, got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "GATC") {
		t.Fatalf("expected genome in log output:\n%s", out)
	}
}

func TestStepLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	rules := Rules[int, Static]{
		Death: func(*Organism[int], Static, *rand.Rand) bool { return false },
		Reproduce: func(*Organism[int], Static, *rand.Rand) []genome.Genome {
			return []genome.Genome{genome.MustParse("AT")}
		},
		Build: func(genome.Genome, *rand.Rand) int { return 0 },
	}
	rng := newRand(3)
	seed := seedOrganisms(rules, rng, genome.MustParse("GATC"), 2)
	s, err := New(Config{Capacity: 10, MaxTicks: 1}, rules, Static{}, rng, seed)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	s.Step()
	out := buf.String()
	for _, want := range []string{"msg=step", "tick=0", "survivors=2", "children=2", "population=4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("step log missing %q:\n%s", want, out)
		}
	}
}

func TestParseMergePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    MergePolicy
		wantErr bool
	}{
		{"", MergeTruncate, false},
		{"truncate", MergeTruncate, false},
		{"POOL", MergePool, false},
		{"sample", MergePool, false},
		{"evict", "", true},
	}
	for _, tc := range tests {
		got, err := ParseMergePolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseMergePolicy(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseMergePolicy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
