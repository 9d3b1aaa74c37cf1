package businessflow

import (
	"fmt"
	"strings"
)

// BuildReportBody renders the plain-text tenant report.
// Nil results mean the tenant bought nothing in the window, which is reported distinctly
// from a processed tenant with zero assignments.
func BuildReportBody(tenantID string, results []VNResult) string {
	if results == nil {
		return fmt.Sprintf("No purchased VNs for tenant %s", tenantID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tenant: %s\n", tenantID)

	assigned := 0
	for _, r := range results {
		fmt.Fprintf(&b, "\nVN: %s (Region: %s)\n", r.VN, r.Region)

		if len(r.Assigned) > 0 {
			b.WriteString(" Assigned PNs:\n")
			for _, a := range r.Assigned {
				fmt.Fprintf(&b, "  - %s (Pilot: %s)\n", a.PN, a.Pilot)
			}
		}

		if len(r.Warnings) > 0 {
			b.WriteString(" Warnings:\n")
			for _, w := range r.Warnings {
				fmt.Fprintf(&b, "  - %s\n", w)
			}
		}
		assigned += len(r.Assigned)
	}

	fmt.Fprintf(&b, "\nSummary: %d PN(s) assigned across %d VN(s)", assigned, len(results))
	return b.String()
}
