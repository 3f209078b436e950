package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Parse converts "Q" or "Q | X=x Y=y" into a Query. Whitespace around the
// bar and around each '=' is ignored.
func Parse(text string) (inference.Query, error) {
	left, right, hasEvidence := strings.Cut(text, "|")
	variable := strings.TrimSpace(left)
	if variable == "" {
		return inference.Query{}, fmt.Errorf("%w: missing query variable in %q", internalerr.ErrInvalidQuery, text)
	}
	if strings.ContainsAny(variable, " \t=") {
		return inference.Query{}, fmt.Errorf("%w: query variable %q must be a single name", internalerr.ErrInvalidQuery, variable)
	}

	q := inference.Query{Variable: variable}
	if !hasEvidence {
		return q, nil
	}

	evidence, err := parseEvidence(right)
	if err != nil {
		return inference.Query{}, err
	}
	if len(evidence) > 0 {
		q.Evidence = evidence
	}
	return q, nil
}

func parseEvidence(text string) (map[string]string, error) {
	// Normalize "A = x" to "A=x" so that fields split on assignments.
	text = strings.Join(strings.Fields(strings.ReplaceAll(text, "=", " = ")), " ")
	text = strings.ReplaceAll(text, " = ", "=")

	evidence := make(map[string]string)
	for _, assign := range strings.Fields(text) {
		name, value, ok := strings.Cut(assign, "=")
		if !ok || name == "" || value == "" || strings.Contains(value, "=") {
			return nil, fmt.Errorf("%w: malformed assignment %q", internalerr.ErrInvalidQuery, assign)
		}
		if prev, dup := evidence[name]; dup && prev != value {
			return nil, fmt.Errorf("%w: %q assigned both %q and %q", internalerr.ErrInvalidQuery, name, prev, value)
		}
		evidence[name] = value
	}
	return evidence, nil
}

// String renders a query back into its textual form with evidence sorted
// by variable name.
func String(q inference.Query) string {
	if len(q.Evidence) == 0 {
		return q.Variable
	}
	names := make([]string, 0, len(q.Evidence))
	for name := range q.Evidence {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(q.Variable)
	sb.WriteString(" |")
	for _, name := range names {
		sb.WriteString(" ")
		sb.WriteString(name)
		sb.WriteString("=")
		sb.WriteString(q.Evidence[name])
	}
	return sb.String()
}
