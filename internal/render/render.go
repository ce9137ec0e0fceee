// Package render writes cycle reports, status and container listings for
// the operator, as a table, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/services/lifecycle"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

func encode(w io.Writer, f Format, v any) (bool, error) {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// Value writes v as JSON or YAML. Table output falls back to JSON.
func Value(w io.Writer, f Format, v any) error {
	if f == FormatTable {
		f = FormatJSON
	}
	_, err := encode(w, f, v)
	return err
}

// Containers lists containers the way `docker ps -a` does.
func Containers(w io.Writer, f Format, containers []domain.Container) error {
	if done, err := encode(w, f, containers); done {
		return err
	}
	if len(containers) == 0 {
		_, err := fmt.Fprintln(w, "No containers")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Container ID", "Image", "Created", "Status", "Names")
	for _, c := range containers {
		table.Append(c.ID, c.Image, since(c.Created), c.Status, c.Name)
	}
	return table.Render()
}

// Report prints the steps of a cycle followed by the container listing.
func Report(w io.Writer, f Format, rep *lifecycle.Report) error {
	if done, err := encode(w, f, rep); done {
		return err
	}

	fmt.Fprintf(w, "Cycle %s for %s: %s\n", rep.CycleID, rep.Container, rep.Phase)
	if rep.Recovered != "" {
		fmt.Fprintf(w, "Recovered from interrupted phase %s\n", rep.Recovered)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Step", "Status", "Duration", "Detail")
	for _, s := range rep.Steps {
		if s.Name == "report" {
			continue
		}
		table.Append(s.Name, string(s.Status), s.Duration.Round(time.Millisecond).String(), truncate(s.Detail, 72))
	}
	if err := table.Render(); err != nil {
		return err
	}
	if rep.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", rep.Error)
	}
	fmt.Fprintln(w)
	return Containers(w, f, rep.Containers)
}

// Status prints the managed objects.
func Status(w io.Writer, f Format, st *lifecycle.Status) error {
	if done, err := encode(w, f, st); done {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Object", "Name", "ID", "State")
	if c := st.Container; c != nil {
		table.Append("container", c.Name, c.ID, c.State)
	} else {
		table.Append("container", "-", "-", "absent")
	}
	if img := st.Image; img != nil {
		table.Append("image", strings.Join(img.Tags, ","), shortImageID(img.ID), "built "+since(img.Created))
	} else {
		table.Append("image", "-", "-", "absent")
	}
	if v := st.Volume; v != nil {
		table.Append("volume", v.Name, "-", v.Driver)
	} else {
		table.Append("volume", "-", "-", "absent")
	}
	if j := st.Journal; j != nil {
		state := string(j.Phase)
		if !j.Phase.IsTerminal() {
			state += " (interrupted)"
		}
		table.Append("last cycle", j.CycleID, j.Revision, state)
	}
	return table.Render()
}

func since(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t).Round(time.Second)
	switch {
	case d < time.Minute:
		return "seconds ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	}
	return fmt.Sprintf("%d days ago", int(d.Hours()/24))
}

func shortImageID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
