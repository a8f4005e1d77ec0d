package tui

import (
	"strings"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/manifest"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/workflow"
)

// Launch form row kinds
const (
	rowToggle = iota
	rowText
	rowSubmit
)

type formRow struct {
	kind  int
	key   string
	label string
	value string
	on    bool
}

// launchForm holds the state of the launch tab: the task selection,
// the editable field values, and the validation errors from the last
// submit attempt.
type launchForm struct {
	rows    []formRow
	cursor  int
	editing bool
	errors  []string
}

func newLaunchForm() launchForm {
	return launchForm{
		rows: []formRow{
			{kind: rowToggle, key: "build", label: "Build"},
			{kind: rowToggle, key: "deploy", label: "Deploy"},
			{kind: rowToggle, key: "benchmark", label: "Benchmark", on: true},
			{kind: rowText, key: "manifest_path", label: "Manifest path"},
			{kind: rowText, key: "suffix", label: "Suffix"},
			{kind: rowText, key: "distribution_url", label: "Distribution URL"},
			{kind: rowText, key: "cluster_endpoint", label: "Cluster endpoint"},
			{kind: rowText, key: "workload_type", label: "Workload"},
			{kind: rowText, key: "s3_bucket", label: "S3 bucket"},
			{kind: rowSubmit, label: "Launch"},
		},
	}
}

func (f launchForm) selection() domain.SelectedTasks {
	var sel domain.SelectedTasks
	for _, row := range f.rows {
		if row.kind != rowToggle || !row.on {
			continue
		}
		switch row.key {
		case "build":
			sel.Build = true
		case "deploy":
			sel.Deploy = true
		case "benchmark":
			sel.Benchmark = true
		}
	}
	return sel
}

func (f launchForm) field(key string) string {
	for _, row := range f.rows {
		if row.kind == rowText && row.key == key {
			return row.value
		}
	}
	return ""
}

// assemble builds the launch selection and config from the form. The
// manifest file is read at submit time so on-disk edits are picked up.
func (f launchForm) assemble() (domain.SelectedTasks, workflow.Config, []string) {
	sel := f.selection()
	cfg := workflow.NewConfig()
	cfg.Suffix = f.field("suffix")
	cfg.DistributionURL = f.field("distribution_url")
	cfg.ClusterEndpoint = f.field("cluster_endpoint")
	cfg.WorkloadType = f.field("workload_type")
	cfg.S3Bucket = f.field("s3_bucket")

	if sel.Build {
		if path := strings.TrimSpace(f.field("manifest_path")); path != "" {
			m, err := manifest.Load(path)
			if err != nil {
				return sel, cfg, []string{err.Error()}
			}
			cfg.ManifestYML = m.Content
		}
	}
	return sel, cfg, nil
}
