package leave

import "context"

// =============================================================================
// OVERLAP DETECTOR - Read-only, advisory
// =============================================================================

// OverlapReport identifies other employees on approved leave in a range.
// Purely informational: it never blocks a submission.
type OverlapReport struct {
	Count       int
	EmployeeIDs []EmployeeID
}

// OverlapDetector answers "who else is away in this window".
type OverlapDetector struct {
	Requests RequestStore
}

// Check returns the distinct other employees with an approved request
// intersecting rng. A store failure degrades to an empty report rather than
// blocking the caller; this query is advisory only.
func (d *OverlapDetector) Check(ctx context.Context, rng DateRange, exclude EmployeeID) OverlapReport {
	reqs, err := d.Requests.OverlappingRequests(ctx, rng, []RequestStatus{StatusApproved}, "")
	if err != nil {
		return OverlapReport{}
	}

	seen := make(map[EmployeeID]bool)
	var report OverlapReport
	for _, r := range reqs {
		if r.EmployeeID == exclude || seen[r.EmployeeID] {
			continue
		}
		seen[r.EmployeeID] = true
		report.EmployeeIDs = append(report.EmployeeIDs, r.EmployeeID)
	}
	report.Count = len(report.EmployeeIDs)
	return report
}
