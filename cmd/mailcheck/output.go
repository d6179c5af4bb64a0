package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/cruxstack/disposable-email-checker-go/internal/types"
)

type styles struct {
	heading    lipgloss.Style
	pass       lipgloss.Style
	fail       lipgloss.Style
	disposable lipgloss.Style
	regular    lipgloss.Style
	unknown    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		heading:    r.NewStyle().Bold(true),
		pass:       r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:       r.NewStyle().Foreground(lipgloss.Color("1")),
		disposable: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		regular:    r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		unknown:    r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	}
}

func (s styles) verdict(v types.Verdict) string {
	switch v {
	case types.VerdictDisposable:
		return s.disposable.Render(v.String())
	case types.VerdictNotDisposable:
		return s.regular.Render(v.String())
	default:
		return s.unknown.Render(v.String())
	}
}

func writeReport(w io.Writer, report *types.Report) error {
	s := newStyles(w)

	fmt.Fprintf(w, "%s %s\n\n", s.heading.Render("Address:"), report.Address.Raw)

	fmt.Fprintln(w, s.heading.Render("Remote services"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range report.Remote {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", r.Source, r.Verdict.String(), r.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.heading.Render("Local checks"))
	for _, c := range report.Local {
		mark := s.pass.Render("PASS")
		if !c.Passed {
			mark = s.fail.Render("FAIL")
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", mark, c.Name, c.Message)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tally: %d disposable, %d not disposable, %d unknown\n",
		report.Tally.Disposable, report.Tally.NotDisposable, report.Tally.Unknown)
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", s.heading.Render("Final verdict:"), s.verdict(report.Verdict), report.VerdictSource)
	return err
}
