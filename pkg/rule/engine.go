package rule

import (
	"fmt"

	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// Group is a named, ordered subset of rules applied together.
type Group struct {
	Name       string
	Rules      []Rule
	PassBudget int // exceeding this is a non-fatal warning, not an error
}

// Standard action-group names.
const (
	GroupEarly        = "early"
	GroupTypeDirected = "type-directed"
	GroupFinal        = "final"
)

// Engine holds the ordered action groups and drives the worklist.
type Engine struct {
	Groups []Group
}

// NewEngine builds an engine with no groups; callers register groups
// via AddGroup in the order they should run.
func NewEngine() *Engine { return &Engine{} }

// AddGroup appends an action group to the schedule.
func (e *Engine) AddGroup(g Group) { e.Groups = append(e.Groups, g) }

// bucket maps each op-code to the rules subscribing to it, plus the
// universal rules (empty OpList) that run for every op-code.
type bucket struct {
	byOp      map[pcode.OpCode][]Rule
	universal []Rule
}

func buildBucket(rules []Rule) *bucket {
	b := &bucket{byOp: make(map[pcode.OpCode][]Rule)}
	for _, r := range rules {
		if len(r.OpList) == 0 {
			b.universal = append(b.universal, r)
			continue
		}
		for _, op := range r.OpList {
			b.byOp[op] = append(b.byOp[op], r)
		}
	}
	return b
}

func (b *bucket) rulesFor(op pcode.OpCode) []Rule {
	if len(b.universal) == 0 {
		return b.byOp[op]
	}
	return append(append([]Rule{}, b.byOp[op]...), b.universal...)
}

// Run executes every action group against fd, in order, stopping each
// group's worklist at a fixed point or its pass budget. It returns the
// accumulated non-fatal warnings.
//
// This is a deterministic worklist driver: for each action group, for
// each op-code C, for each rule R subscribing to C, for each op in the
// C-indexed bucket, run R.Apply. It is single-threaded and cooperative
// — no goroutines touch fd concurrently; parallelism, where it exists,
// is across independent FunctionData graphs (see cmd/pcodesimplify's
// `batch` subcommand), never within one shared graph.
func (e *Engine) Run(fd *funcdata.FunctionData, opts *Options) *Warnings {
	warnings := NewWarnings()
	for _, g := range e.Groups {
		e.runGroup(fd, g, opts, warnings)
	}
	return warnings
}

func (e *Engine) runGroup(fd *funcdata.FunctionData, g Group, opts *Options, warnings *Warnings) {
	b := buildBucket(g.Rules)
	budget := g.PassBudget
	if budget <= 0 {
		budget = 1
	}
	for pass := 0; pass < budget; pass++ {
		mutated := 0
		worklist := liveOps(fd)
		for _, opID := range worklist {
			op := fd.Op(opID)
			if op.IsDead() {
				continue
			}
			for _, r := range b.rulesFor(op.Opcode) {
				if fd.Op(opID).IsDead() {
					break
				}
				if n := r.Apply(fd, opID, opts); n > 0 {
					mutated += n
				}
			}
		}
		if mutated == 0 {
			return
		}
	}
	warnings.Add(WarnBudgetExceeded, 0, fmt.Sprintf("action group %q exceeded its %d-pass budget", g.Name, budget))
}

// liveOps enumerates every non-dead op currently reachable from a
// block, in block/sequence order — the "C-indexed bucket" is realized
// here as a single ordered scan re-filtered per op-code by
// bucket.rulesFor, rather than per-op-code physical buckets. The list is
// taken once at the start of each pass: an op re-coded before its turn
// is matched under its new op-code, but ops created during a pass are
// first visited in the next pass, and an op re-coded by one of its own
// rules finishes that visit with its old op-code's rule list.
func liveOps(fd *funcdata.FunctionData) []pcode.OpID {
	var out []pcode.OpID
	for _, block := range fd.Blocks {
		for _, opID := range block.Ops {
			if !fd.Op(opID).IsDead() {
				out = append(out, opID)
			}
		}
	}
	return out
}
