package briefing

import "context"

// Analyzer is the port for the email analysis backend. Implementations may
// fail (network, quota, malformed output); callers fall back to
// HeuristicAnalysis and never surface analyzer errors to the dashboard.
type Analyzer interface {
	// AnalyzeEmail produces a structured judgment for one email
	AnalyzeEmail(ctx context.Context, email EmailContent) (Analysis, error)
}
