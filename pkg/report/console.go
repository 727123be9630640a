package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	errorRed   = lipgloss.Color("203")
	mutedGray  = lipgloss.Color("#6B7280")
)

type styles struct {
	box, title, ok, bad, muted, kind lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			box:   plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
			title: plain, ok: plain, bad: plain, muted: plain, kind: plain,
		}
	}
	return styles{
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1),
		title: lipgloss.NewStyle().Bold(true).Foreground(salmonPink),
		ok:    lipgloss.NewStyle().Foreground(mintGreen),
		bad:   lipgloss.NewStyle().Bold(true).Foreground(errorRed),
		muted: lipgloss.NewStyle().Foreground(mutedGray),
		kind:  lipgloss.NewStyle().Bold(true),
	}
}

// Render formats the report for a terminal.
func Render(r *Report, color bool) string {
	st := newStyles(color)
	var b strings.Builder

	status := st.ok.Render("PASSED")
	if !r.Passed() {
		status = st.bad.Render(fmt.Sprintf("FAILED (%d of %d agents)", r.Failures(), len(r.Agents)))
	}
	header := fmt.Sprintf("%s\nrun %s\ntarget %s\nduration %s\nstatus %s",
		st.title.Render("partyprobe report"),
		r.RunID, r.TargetURL, r.Duration().Round(time.Millisecond), status)
	b.WriteString(st.box.Render(header))
	b.WriteString("\n\n")

	b.WriteString(st.title.Render("Agents"))
	b.WriteString("\n")
	for _, a := range r.Agents {
		mark := st.ok.Render("✓")
		if !a.Result.Success {
			mark = st.bad.Render("✗")
		}
		fmt.Fprintf(&b, "  %s %s (%s): %s\n", mark, a.Name, a.Role, a.Result)
	}

	b.WriteString("\n")
	b.WriteString(st.title.Render(fmt.Sprintf("Issues (%d)", len(r.Issues))))
	b.WriteString("\n")
	if len(r.Issues) == 0 {
		b.WriteString(st.muted.Render("  none"))
		b.WriteString("\n")
		return b.String()
	}

	for _, c := range r.Counts() {
		fmt.Fprintf(&b, "  %-16s %d\n", st.kind.Render(string(c.Kind)), c.Count)
	}
	b.WriteString("\n")
	for _, i := range r.Issues {
		fmt.Fprintf(&b, "  %s %s %s: %s\n",
			st.muted.Render(i.Timestamp.Format("15:04:05.000")), i.Agent, st.kind.Render(string(i.Kind)), i.Message)
		if i.Screenshot != "" {
			fmt.Fprintf(&b, "    %s\n", st.muted.Render("screenshot: "+i.Screenshot))
		}
	}
	return b.String()
}

// Print writes the rendered report to w.
func Print(w io.Writer, r *Report, color bool) error {
	_, err := io.WriteString(w, Render(r, color))
	return err
}
