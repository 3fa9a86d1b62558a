package rules

import "github.com/oisee/pcodesimplify/pkg/rule"

// Catalogue returns every rule this package implements, self-describing
// the ruleset the way a CLI reports its search strategy. The `rules`
// CLI subcommand lists these names directly.
func Catalogue() []rule.Rule {
	return append(append(append([]rule.Rule{}, EarlyGroup()...), TypeDirectedGroup()...), FinalGroup()...)
}

// EarlyGroup are the rules safe to run before any type recovery:
// algebraic identities, masks, shifts, comparisons, CSE-adjacent
// folding, and the structural SUBPIECE/PIECE peepholes.
func EarlyGroup() []rule.Rule {
	return []rule.Rule{
		RuleEarlyRemoval,
		RuleCollapseConstants,
		RuleIdentityEl,
		RuleTrivialArith,
		RulePropagateCopy,
		RuleTermOrder,
		RuleCollectTerms,
		RuleMultNegOne,
		RuleBooleanNegateDedup,
		RuleLzcountShiftBool,
		RuleAndMask,
		RuleOrMask,
		RuleOrConsume,
		RulePiece2Zext,
		RulePiece2Sext,
		RuleZextEliminate,
		RuleZextCommute,
		RuleTrivialShift,
		RuleDoubleShift,
		RuleDoubleArithShift,
		RuleConcatShift,
		RuleLessEqual,
		RuleEqual2Zero,
		RuleNotDistribute,
		RuleLess2Zero,
		RuleThreeWayCompare,
		RuleSignForm1,
		RuleSignForm2,
		RuleDivOpt,
		RuleSubpieceZext,
		RuleSubpieceCopy,
		RuleSubpiecePiece,
		RuleSubpieceAndDown,
		RuleOrPiece2Copy,
		RuleSegment,
		RuleCpoolFixup,
		RuleLzcountPopcount,
		RuleMultiCollapse,
		RuleStoreDead,
		RuleIndirectCollapse,
	}
}

// TypeDirectedGroup holds the rules that work from recovered type
// information. The group itself is not gated: RulePtrArith and
// RulePieceStructure decline until TypeRecoveryStarted, while
// RuleStructOffset0, RulePushPtr and RulePtrFlow do not check it.
func TypeDirectedGroup() []rule.Rule {
	return []rule.Rule{
		RulePtrArith,
		RuleStructOffset0,
		RulePushPtr,
		RulePtrFlow,
		RulePieceStructure,
	}
}

// FinalGroup runs last: it undoes type-directed transforms once type
// recovery has given up, so the IR doesn't carry orphaned
// structured-access op-codes past the point anything can interpret them.
func FinalGroup() []rule.Rule {
	return []rule.Rule{
		RulePtrsubUndo,
		RulePtraddUndo,
		RuleFuncPtrEncoding,
		RuleConditionalMove,
	}
}
