package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by -o.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const descriptionPreviewLimit = 40

func checkFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(format)
}

// renderTable prints one row per action.
func renderTable(w io.Writer, items []sdk.Action) error {
	data := pterm.TableData{{"ID", "NAME", "ICON", "STATUS", "DESCRIPTION", "CREATED"}}
	for _, a := range items {
		data = append(data, []string{
			orDash(a.ID),
			orDefault(a.DisplayName(), "Sin nombre"),
			iconPreview(a),
			a.Status.Label(),
			truncate(orDefault(a.Description, "Sin descripción"), descriptionPreviewLimit),
			orDash(a.CreatedAt),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func iconPreview(a sdk.Action) string {
	if a.HasImageIcon() {
		return "[imagen]"
	}
	return orDash(a.Icon)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func orDash(s string) string {
	return orDefault(s, "-")
}
