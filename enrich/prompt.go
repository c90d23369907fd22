package enrich

import (
	"fmt"
	"strings"

	"github.com/skillsenselab/voicediag/session"
)

const systemPrompt = "You are a voice diagnostic assistant. Given acoustic " +
	"measurements from a short voice recording, write a brief, plain-language " +
	"observation for the user. Be concrete and avoid medical claims."

// buildPrompt assembles the generation prompt from the session's
// diagnostic payload plus up to the configured number of the user's
// most recent prior narratives.
func buildPrompt(sess *session.Session, history []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A voice recording was classified as %q with a signal quality score of %.2f.\n",
		sess.Label, sess.QualityScore)
	if sess.Degenerate {
		b.WriteString("The recording was flagged as degenerate (mostly silence or too little voiced content).\n")
	}
	if values, err := sess.FeatureValues(); err == nil && len(values) > 0 {
		fmt.Fprintf(&b, "Acoustic feature vector (%d values): %s\n", len(values), formatValues(values))
	}
	if sess.SubScores != "" {
		fmt.Fprintf(&b, "Quality sub-scores: %s\n", sess.SubScores)
	}

	if len(history) > 0 {
		b.WriteString("\nPrevious observations for this user, newest first:\n")
		for i, n := range history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n)
		}
	}

	b.WriteString("\nWrite one short paragraph interpreting this recording")
	if len(history) > 0 {
		b.WriteString(", noting any trend against the previous observations")
	}
	b.WriteString(".")
	return b.String()
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.4f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
