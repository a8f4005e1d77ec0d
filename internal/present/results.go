// Package present shapes job results and logs for display. It is a
// pure transformation layer: given a status snapshot it produces
// per-task sections with formatted fields and, for benchmark output,
// a parsed metrics table. It holds no state and drives no control
// flow.
package present

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

// NotAvailable is the explicit fallback for any field the backend did
// not report. Missing data is rendered, never silently omitted.
const NotAvailable = "not available"

// Field is one formatted key/value pair of a task result
type Field struct {
	Key   string
	Label string
	Value string
}

// MetricsTable is a parsed benchmark metrics table
type MetricsTable struct {
	Columns []string
	Rows    [][]string
}

// TaskSection groups everything displayed for one task
type TaskSection struct {
	Task   string
	Title  string
	Status domain.TaskStatus
	Error  string
	Fields []Field
	// Table is set for a benchmark task whose raw output parsed into
	// a metrics table; the raw blob is then dropped from Fields.
	Table *MetricsTable
}

// taskOrder fixes the display order for the known tasks; anything the
// backend adds later sorts after them alphabetically.
var taskOrder = map[string]int{
	domain.TaskBuild:     0,
	domain.TaskDeploy:    1,
	domain.TaskBenchmark: 2,
}

// Sections produces the per-task display sections for a snapshot.
// Every task that appears in either the task states or the results map
// gets a section; a task without a result renders the fallback marker.
func Sections(snap *domain.JobStatusSnapshot) []TaskSection {
	if snap == nil {
		return nil
	}

	names := make(map[string]bool)
	for name := range snap.Tasks {
		names[name] = true
	}
	for name := range snap.Results {
		names[name] = true
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Slice(ordered, func(i, j int) bool {
		oi, iok := taskOrder[ordered[i]]
		oj, jok := taskOrder[ordered[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return ordered[i] < ordered[j]
		}
	})

	sections := make([]TaskSection, 0, len(ordered))
	for _, name := range ordered {
		sections = append(sections, buildSection(name, snap))
	}
	return sections
}

func buildSection(name string, snap *domain.JobStatusSnapshot) TaskSection {
	section := TaskSection{
		Task:  name,
		Title: FormatLabel(name),
	}
	if state, ok := snap.Tasks[name]; ok {
		section.Status = state.Status
		section.Error = state.Error
	}

	result := snap.Results[name]
	if len(result) == 0 {
		section.Fields = []Field{{Key: "result", Label: "Result", Value: NotAvailable}}
		return section
	}

	if name == domain.TaskBenchmark {
		if blob, ok := result["output"].(string); ok {
			if table := ParseMetricsTable(blob); table != nil {
				section.Table = table
			}
		}
	}

	keys := make([]string, 0, len(result))
	for key := range result {
		if section.Table != nil && key == "output" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		section.Fields = append(section.Fields, Field{
			Key:   key,
			Label: FormatLabel(key),
			Value: formatValue(result[key]),
		})
	}
	return section
}

// ParseMetricsTable parses a raw pipe-delimited metrics blob. The
// header is the first line containing the token "Metric"; separator
// lines and data rows whose cell count differs from the header's are
// discarded. Returns nil when no header is found or no data rows
// survive.
func ParseMetricsTable(blob string) *MetricsTable {
	lines := strings.Split(blob, "\n")

	headerIdx := -1
	var columns []string
	for i, line := range lines {
		if !strings.Contains(line, "Metric") || !strings.Contains(line, "|") {
			continue
		}
		columns = splitRow(line)
		if len(columns) > 0 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil
	}

	var rows [][]string
	for _, line := range lines[headerIdx+1:] {
		cells := splitRow(line)
		if len(cells) == 0 || isSeparator(cells) {
			continue
		}
		if len(cells) != len(columns) {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}
	return &MetricsTable{Columns: columns, Rows: rows}
}

// splitRow splits a table line on the pipe delimiter, trims each cell,
// and drops the empty edge cells produced by leading/trailing pipes
func splitRow(line string) []string {
	if !strings.Contains(line, "|") {
		return nil
	}
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	for len(cells) > 0 && cells[0] == "" {
		cells = cells[1:]
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// isSeparator reports whether every cell is made of table-rule
// characters only
func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-:= ") != "" {
			return false
		}
	}
	return true
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return NotAvailable
	case string:
		if strings.TrimSpace(val) == "" {
			return NotAvailable
		}
		return val
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case float64:
		// JSON numbers decode as float64; render integers without the
		// fractional part.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
