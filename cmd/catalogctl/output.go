package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kubeflow/data-catalog/pkg/catalog/classification"
	"github.com/kubeflow/data-catalog/pkg/catalog/entity"
)

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

// structured reports whether output is json or yaml.
func (p *printer) structured() bool {
	return p.format == "json" || p.format == "yaml"
}

func (p *printer) printOutput(v any) error {
	switch p.format {
	case "json":
		return p.printJSON(v)
	case "yaml":
		return p.printYAML(v)
	default:
		return fmt.Errorf("unsupported output format for structured data: %s (use json or yaml)", p.format)
	}
}

func (p *printer) printJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) printYAML(v any) error {
	// Convert through JSON to get consistent keys (json tags).
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	return enc.Encode(m)
}

func (p *printer) printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(p.w, 0, 8, 2, ' ', 0)

	upperHeaders := make([]string, len(headers))
	for i, h := range headers {
		upperHeaders[i] = strings.ToUpper(h)
	}
	fmt.Fprintln(w, strings.Join(upperHeaders, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printAssets prints data entities in the chosen format.
func (p *printer) printAssets(assets []entity.Asset) error {
	if p.structured() {
		return p.printOutput(assets)
	}
	rows := make([][]string, 0, len(assets))
	for i := range assets {
		rows = append(rows, assetRow(&assets[i]))
	}
	p.printTable([]string{"id", "oddrn", "name", "type", "status", "roles"}, rows)
	return nil
}

func assetRow(a *entity.Asset) []string {
	roles := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		roles = append(roles, string(r))
	}
	return []string{
		strconv.FormatInt(a.ID, 10),
		truncate(a.Oddrn, 60),
		truncate(a.Name(), 40),
		typeName(a.TypeID),
		string(a.Status),
		strings.Join(roles, ","),
	}
}

func typeName(id entity.TypeID) string {
	t, err := classification.Lookup(id)
	if err != nil {
		return strconv.Itoa(int(id))
	}
	return t.Name
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

// truncate shortens a string to max length, appending "..." if truncated.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
