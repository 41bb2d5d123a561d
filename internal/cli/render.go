package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pterm/pterm"
	"github.com/specialistvlad/zkparallel/internal/chain"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/specialistvlad/zkparallel/internal/orchestrator"
	"github.com/specialistvlad/zkparallel/internal/task"
)

func formatLogLine(ev task.Event) string {
	if ev.CircuitID == "" {
		return ev.Text
	}
	return fmt.Sprintf("[%s] %s", ev.CircuitID, ev.Text)
}

func renderTable(w io.Writer, data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithHeaderRowSeparator("-").WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

func renderReport(w io.Writer, report orchestrator.Report) error {
	fmt.Fprintln(w)
	if len(report.Results) == 0 {
		for _, line := range report.Log {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "❌ 0/0 circuits verified (%s)\n", report.Mode)
		return nil
	}

	data := pterm.TableData{{"Circuit", "Status", "Elapsed", "Detail"}}
	for _, res := range report.Results {
		status, detail := "verified", ""
		if !res.OK {
			status, detail = "failed", res.Error
		}
		if len(res.Receipts) > 0 {
			detail = receipts(res.Receipts)
		}
		data = append(data, []string{res.CircuitID, status, fmt.Sprintf("%d ms", res.ElapsedMs), detail})
	}
	if err := renderTable(w, data); err != nil {
		return err
	}

	icon := "✅"
	if !report.AllOK() {
		icon = "❌"
	}
	_, err := fmt.Fprintf(w, "%s %d/%d circuits verified in %d ms (%s)\n", icon, report.Summary.OK, report.Summary.Total, report.Summary.ElapsedMs, report.Mode)
	return err
}

func receipts(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for name, r := range m {
		parts = append(parts, name+": "+r)
	}
	slices.Sort(parts)
	return strings.Join(parts, ", ")
}

func renderCircuits(w io.Writer, g *circuit.Graph) error {
	data := pterm.TableData{{"Circuit", "Depends on", "Verifier", "Default"}}
	for _, id := range g.IDs() {
		d := g.MustGet(id)
		deps := "-"
		if len(d.Deps) > 0 {
			deps = strings.Join(d.Deps, ", ")
		}
		verifier := d.Verifier
		if verifier == "" {
			verifier = "-"
		}
		def := ""
		if d.DefaultSelected {
			def = "yes"
		}
		data = append(data, []string{id, deps, verifier, def})
	}
	return renderTable(w, data)
}

// renderDeployments prints the deployment table and returns how many
// contracts have code.
func renderDeployments(w io.Writer, statuses []chain.DeploymentStatus) (int, error) {
	data := pterm.TableData{{"Contract", "Address", "Code size", "Status"}}
	deployed := 0
	for _, s := range statuses {
		status := "missing"
		switch {
		case s.Error != "":
			status = "error: " + s.Error
		case s.Deployed():
			status = "deployed"
			deployed++
		}
		data = append(data, []string{s.Name, s.Address, fmt.Sprintf("%d", s.CodeSize), status})
	}
	if err := renderTable(w, data); err != nil {
		return 0, err
	}
	_, err := fmt.Fprintf(w, "Verified %d/%d contracts\n", deployed, len(statuses))
	return deployed, err
}
