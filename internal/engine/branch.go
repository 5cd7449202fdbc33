package engine

import (
	"ludotheque-admin/internal/domain"
)

// ResolveBranche evaluates a node's branches in their given order and returns
// the first one that matches, plus the trace of every branch examined up to
// and including the matched one. First-match-wins, not best-match: a matching
// branch stops the scan. A condition typed autre/default always matches, so a
// trailing fallback branch is selected whenever nothing before it matched.
// Returns a nil branch when nothing matches and no fallback exists.
func ResolveBranche(node *domain.Node, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) (*domain.Branche, []domain.BrancheTestee) {
	testees := make([]domain.BrancheTestee, 0, len(node.Branches))

	for i := range node.Branches {
		br := &node.Branches[i]

		cond, err := domain.ParseCondition(node.Type, br.Condition)
		var res MatchResult
		if err != nil {
			// A malformed condition never matches; the parse error is surfaced
			// in the audit trace rather than aborting the walk.
			res = MatchResult{Match: false, Details: err.Error()}
		} else {
			res = MatchConditionDetails(node.Type, cond, user, ctx)
		}

		testees = append(testees, domain.BrancheTestee{
			BrancheID: br.ID,
			Code:      br.Code,
			Libelle:   br.Libelle,
			Condition: br.Condition,
			Match:     res.Match,
			Details:   res.Details,
		})

		if res.Match {
			return br, testees
		}
	}

	return nil, testees
}
