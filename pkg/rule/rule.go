// Package rule implements the rule-engine framework: the Rule interface,
// op-code subscription, action groups, and the worklist-driven
// scheduler. pkg/rules registers its catalogue of concrete rules
// against this package; this package never references pkg/rules (the
// dependency points the other way, avoiding a cycle).
package rule

import (
	"github.com/oisee/pcodesimplify/pkg/funcdata"
	"github.com/oisee/pcodesimplify/pkg/pcode"
)

// Rule is one rewrite in the catalogue. Implementations must never
// panic on a non-match; apply returning 0 is the only "no match" signal.
type Rule struct {
	// Name identifies the rule for diagnostics and the `rules` CLI
	// subcommand.
	Name string
	// OpList is the set of op-codes this rule subscribes to; empty
	// means universal (every op-code bucket).
	OpList []pcode.OpCode
	// Apply attempts to match and rewrite op. It returns 0 when no
	// change was made, >=1 when the IR was mutated.
	Apply func(fd *funcdata.FunctionData, op pcode.OpID, opts *Options) int
}

// Options threads tunables through rule application.
type Options struct {
	NanIgnoreAll         bool
	FuncPtrAlignBits     int
	TypeRecoveryStarted  bool
	TypeRecoveryExceeded bool
}
