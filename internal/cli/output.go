package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// table writes aligned columns with a dashed rule under the header
type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	rule := make([]string, len(headers))
	for i, h := range headers {
		rule[i] = strings.Repeat("-", len(h))
	}
	t.row(headers...)
	t.row(rule...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() error {
	return t.tw.Flush()
}

// printOutput prints data in the requested structured format. Table
// output is rendered by each command.
func printOutput(w io.Writer, data interface{}) error {
	switch getOutputFormat() {
	case "yaml":
		return printYAML(w, data)
	default:
		return printJSON(w, data)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printYAML goes through JSON first so the field names follow the json tags
func printYAML(w io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// formatSeverity returns a severity string with visual indicator.
func formatSeverity(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "[!] CRITICAL"
	case "high":
		return "[H] HIGH"
	case "medium":
		return "[M] MEDIUM"
	case "low":
		return "[L] LOW"
	default:
		return severity
	}
}

// formatStatus returns a status string with visual indicator.
func formatStatus(status string) string {
	switch strings.ToLower(status) {
	case "resolved", "operational":
		return "[+] " + status
	case "critical", "degraded":
		return "[-] " + status
	case "new", "maintenance":
		return "[*] " + status
	case "acknowledged":
		return "[~] " + status
	default:
		return status
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
