package report

import (
	"fmt"
	"strings"
)

// Prompt is the fixed instruction sent with every chart.
const Prompt = `You are a trading assistant. Analyze this price chart screenshot and answer in plain text with these fields, one per line:
Trend: <up | down | sideways>
Support: <price level(s)>
Resistance: <price level(s)>
Entry: <price or "n/a">
Stop: <price or "n/a">
Target: <price or "n/a">
Keep it short. Do not add disclaimers.`

// Reason explains why a fallback report was produced.
type Reason string

const (
	ReasonNotConfigured Reason = "analysis provider is not configured"
	ReasonUnavailable   Reason = "analysis provider is unavailable"
	ReasonUnreadable    Reason = "analysis provider returned an unreadable answer"
)

// Report is the text sent back for one chart.
type Report struct {
	Text      string
	Simulated bool
	Failed    bool
}

// Live wraps provider text.
func Live(text string) Report {
	return Report{Text: "📊 Chart analysis\n\n" + strings.TrimSpace(text)}
}

// Fallback is the fixed template used when the provider cannot answer.
func Fallback(reason Reason) Report {
	var b strings.Builder
	b.WriteString("📊 Chart analysis (simulated)\n")
	fmt.Fprintf(&b, "⚠️ Live analysis unavailable: %s.\n\n", reason)
	b.WriteString("Trend: sideways\n")
	b.WriteString("Support: nearest swing low\n")
	b.WriteString("Resistance: nearest swing high\n")
	b.WriteString("Entry: n/a\n")
	b.WriteString("Stop: n/a\n")
	b.WriteString("Target: n/a\n\n")
	b.WriteString("This is a simulated placeholder, not trading advice.")
	return Report{Text: b.String(), Simulated: true}
}

// Unreadable is used when the stored image itself cannot be loaded.
func Unreadable() Report {
	return Report{Text: "⚠️ This screenshot could not be read. Please upload it again.", Failed: true}
}

// Compose joins per-chart reports into the single message sent to the user.
func Compose(reports []Report) string {
	if len(reports) == 1 {
		return reports[0].Text
	}
	parts := make([]string, 0, len(reports))
	for i, r := range reports {
		parts = append(parts, fmt.Sprintf("🖼 Chart %d/%d\n%s", i+1, len(reports), r.Text))
	}
	return strings.Join(parts, "\n\n")
}
