package engine

// solutionQuota bounds the number of intermediate solutions a query may
// produce across all of its join steps.
//
// This prevents runaway joins (a cartesian product of large patterns) from
// consuming unbounded memory. A limit of zero or less disables the check.
type solutionQuota struct {
	limit   int
	current int
}

func newSolutionQuota(limit int) *solutionQuota {
	return &solutionQuota{limit: limit}
}

// add counts n more solutions and reports a QUOTA_EXCEEDED error once the
// total exceeds the limit.
func (q *solutionQuota) add(n int) error {
	q.current += n
	if q.limit > 0 && q.current > q.limit {
		return NewQuotaError("intermediate solutions", q.current, q.limit)
	}
	return nil
}
