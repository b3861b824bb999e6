package stress

import (
	"math/rand/v2"

	"github.com/tliron/commonlog"

	"github.com/chazu/tracefmt/objfmt"
)

var log = commonlog.GetLogger("tracefmt.stress")

// Stats summarizes a completed stress run.
type Stats struct {
	Built       int // vectors allocated through the reserve/commit builder
	Initialized int // vectors produced by initializing raw extents
	Writes      int
	Swaps       int
	Reads       int
	Retries     int // commits refused by the arena
	Pads        int // pad objects constructed
	Segments    int // arena segments allocated
	Validated   int // CheckObject passes across all phases
}

// Runner executes one stress run against a private registry and arena.
type Runner struct {
	cfg   Config
	arena *Arena
	fmt   *objfmt.Format
	rnd   *rand.Rand
	objs  []objfmt.Addr
	stats Stats
}

// NewRunner validates cfg and prepares a run. Separate PCG streams drive
// the allocator's failure injection, the format's slot fills, and the
// runner's own choices, so each is reproducible on its own.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg, err := objfmt.NewRegistry()
	if err != nil {
		return nil, err
	}
	arena := NewArena(cfg.SegmentWords, cfg.CommitFailRate, rand.New(rand.NewPCG(cfg.Seed, 1)))
	f := objfmt.NewFormat(reg, rand.New(rand.NewPCG(cfg.Seed, 2)), arena.MakePad)
	return &Runner{
		cfg:   cfg,
		arena: arena,
		fmt:   f,
		rnd:   rand.New(rand.NewPCG(cfg.Seed, 0)),
	}, nil
}

// Format returns the run's object format, for snapshotting.
func (r *Runner) Format() *objfmt.Format { return r.fmt }

// Objects returns the addresses of every object the run has built. They
// stay valid for the runner's lifetime; the arena never reclaims.
func (r *Runner) Objects() []objfmt.Addr { return r.objs }

// Run executes the build, mutation, and validation phases and returns the
// run's statistics.
func (r *Runner) Run() (*Stats, error) {
	log.Infof("building %d objects (seed %d)", r.cfg.Objects, r.cfg.Seed)
	if err := r.build(); err != nil {
		return nil, err
	}
	r.validateAll()

	log.Infof("applying %d mutations", r.cfg.Mutations)
	r.mutate()
	r.validateAll()

	r.stats.Retries = r.arena.Retries()
	r.stats.Pads = r.arena.Pads()
	r.stats.Segments = r.arena.Segments()
	log.Infof("run complete: %d built, %d initialized, %d retries, %d pads",
		r.stats.Built, r.stats.Initialized, r.stats.Retries, r.stats.Pads)
	return &r.stats, nil
}

// build populates the heap. Objects alternate between the two creation
// paths: the builder's reserve/commit protocol, and direct initialization
// of a raw extent with the existing objects as the reference pool. Early
// objects therefore tend to be leaves and later ones reference them,
// which yields acyclic-but-deep graphs.
func (r *Runner) build() error {
	for i := 0; i < r.cfg.Objects; i++ {
		slots := r.rnd.IntN(r.cfg.MaxSlots + 1)

		var addr objfmt.Addr
		if i%2 == 0 {
			a, err := r.fmt.BuildVector(slots, r.arena)
			if err != nil {
				return err
			}
			addr = a
			r.stats.Built++
		} else {
			size := uintptr(slots+2) * objfmt.WordBytes
			addr = r.arena.AllocRaw(size)
			if err := r.fmt.InitializeObject(addr, size, r.objs); err != nil {
				return err
			}
			r.stats.Initialized++
		}
		r.objs = append(r.objs, addr)
	}
	return nil
}

// mutate applies random write, swap, and read operations across the heap.
// Read results that are references get validated on the spot, the way a
// collector's client would dereference them.
func (r *Runner) mutate() {
	if len(r.objs) == 0 {
		return
	}
	for i := 0; i < r.cfg.Mutations; i++ {
		addr := r.objs[r.rnd.IntN(len(r.objs))]
		switch r.rnd.IntN(3) {
		case 0:
			r.fmt.WriteRandomSlot(addr, r.objs)
			r.stats.Writes++
		case 1:
			r.fmt.SwapTwoSlots(addr)
			r.stats.Swaps++
		case 2:
			s := r.fmt.ReadRandomSlot(addr)
			if s.IsReference() {
				r.fmt.CheckObject(s.Addr())
				r.stats.Validated++
			}
			r.stats.Reads++
		}
	}
}

// validateAll runs the collector's consistency gate over every object.
func (r *Runner) validateAll() {
	for _, addr := range r.objs {
		r.fmt.CheckObject(addr)
		r.stats.Validated++
	}
}
