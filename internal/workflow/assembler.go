// Package workflow assembles launch requests for the backend workflow
// endpoint. It validates the operator's task selection against the
// configuration fields and derives the minimal payload the backend
// accepts for that selection.
package workflow

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
)

// Defaults for fields the backend expects even when the operator left
// them untouched
const (
	DefaultSecurityDisabled    = true
	DefaultCPUArch             = "arm64"
	DefaultSingleNodeCluster   = false
	DefaultDataInstanceType    = "r6g.2xlarge"
	DefaultDataNodeCount       = 3
	DefaultDistVersion         = "3.0.0"
	DefaultMinDistribution     = false
	DefaultUse50PercentHeap    = true
	DefaultIsInternal          = false
	DefaultPipeline            = "benchmark-only"
	DefaultEC2InstanceType     = "t4g.medium"
	DefaultBenchmarkTimeoutMin = 60
)

// Param is one custom key/value parameter forwarded verbatim to a task
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Config is the full configuration field set. It is a superset across
// task types; payload assembly picks the fields relevant to the
// selected tasks.
type Config struct {
	// Build
	ManifestYML       string
	CustomBuildParams []Param

	// Deploy
	Suffix                 string
	DistributionURL        string
	SecurityDisabled       bool
	AdminPassword          string
	CPUArch                string
	SingleNodeCluster      bool
	DataInstanceType       string
	DataNodeCount          int
	DistVersion            string
	MinDistribution        bool
	ServerAccessType       string
	RestrictServerAccessTo string
	Use50PercentHeap       bool
	IsInternal             bool
	CustomDeployParams     []Param

	// Benchmark
	ClusterEndpoint         string
	WorkloadType            string
	Pipeline                string
	EC2InstanceType         string
	BenchmarkTimeoutMinutes int
	SubnetID                string
	SecurityGroupID         string
	CustomBenchmarkParams   []Param

	// Global
	S3Bucket string
}

// NewConfig returns a Config with backend-aligned defaults applied
func NewConfig() Config {
	return Config{
		SecurityDisabled:  DefaultSecurityDisabled,
		CPUArch:           DefaultCPUArch,
		SingleNodeCluster: DefaultSingleNodeCluster,
		DataInstanceType:  DefaultDataInstanceType,
		DataNodeCount:     DefaultDataNodeCount,
		DistVersion:       DefaultDistVersion,
		MinDistribution:   DefaultMinDistribution,
		Use50PercentHeap:  DefaultUse50PercentHeap,
		IsInternal:        DefaultIsInternal,
	}
}

// SetSecurityDisabled toggles cluster security. Disabling security
// clears any stored admin password; that is a side effect of the
// toggle, not of payload assembly.
func (c *Config) SetSecurityDisabled(disabled bool) {
	c.SecurityDisabled = disabled
	if disabled {
		c.AdminPassword = ""
	}
}

// Validation messages. Exact strings are part of the contract with the
// host UI, which matches on them for field highlighting.
const (
	errNoTaskSelected      = "Select at least one task"
	errBuildBenchNoDeploy  = "Build + Benchmark workflow requires Deploy"
	errManifestRequired    = "Manifest YAML is required for build"
	errManifestInvalid     = "Manifest YAML is not valid YAML"
	errSuffixRequired      = "Deployment suffix is required"
	errDistURLRequired     = "Distribution URL required when not building"
	errEndpointRequired    = "Cluster endpoint required when not deploying"
	errBucketRequired      = "S3 bucket name is required"
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Validate checks the task selection against the configuration and
// returns human-readable errors. Launch is permitted iff the result is
// empty.
//
// Structural errors short-circuit: an empty selection or a
// build+benchmark selection without deploy suppresses all field checks.
func Validate(selected domain.SelectedTasks, cfg Config) []string {
	if !selected.Any() {
		return []string{errNoTaskSelected}
	}

	if selected.Build && selected.Benchmark && !selected.Deploy {
		return []string{errBuildBenchNoDeploy}
	}

	var errs []string

	if selected.Build {
		if blank(cfg.ManifestYML) {
			errs = append(errs, errManifestRequired)
		} else if !validYAML(cfg.ManifestYML) {
			errs = append(errs, errManifestInvalid)
		}
	}

	if selected.Deploy {
		if blank(cfg.Suffix) {
			errs = append(errs, errSuffixRequired)
		}
		if !selected.Build && blank(cfg.DistributionURL) {
			errs = append(errs, errDistURLRequired)
		}
	}

	if selected.Benchmark && !selected.Deploy && blank(cfg.ClusterEndpoint) {
		errs = append(errs, errEndpointRequired)
	}

	// All task results persist to the bucket, so it is required for
	// every selection.
	if blank(cfg.S3Bucket) {
		errs = append(errs, errBucketRequired)
	}

	return errs
}

func validYAML(content string) bool {
	var doc interface{}
	return yaml.Unmarshal([]byte(content), &doc) == nil
}

// BuildPayload derives the minimal request body for the selected
// tasks. A task's fields appear only when that task is selected; the
// bucket field is always present.
func BuildPayload(selected domain.SelectedTasks, cfg Config) map[string]interface{} {
	payload := map[string]interface{}{
		"s3_bucket": cfg.S3Bucket,
	}

	if selected.Build {
		payload["manifest_yml"] = cfg.ManifestYML
		if len(cfg.CustomBuildParams) > 0 {
			payload["custom_build_params"] = cfg.CustomBuildParams
		}
	}

	if selected.Deploy {
		payload["suffix"] = cfg.Suffix
		if cfg.DistributionURL != "" {
			payload["distribution_url"] = cfg.DistributionURL
		}
		payload["security_disabled"] = cfg.SecurityDisabled
		if !cfg.SecurityDisabled && cfg.AdminPassword != "" {
			payload["admin_password"] = cfg.AdminPassword
		}
		payload["cpu_arch"] = stringOr(cfg.CPUArch, DefaultCPUArch)
		payload["single_node_cluster"] = cfg.SingleNodeCluster
		payload["data_instance_type"] = stringOr(cfg.DataInstanceType, DefaultDataInstanceType)
		payload["data_node_count"] = intOr(cfg.DataNodeCount, DefaultDataNodeCount)
		payload["dist_version"] = stringOr(cfg.DistVersion, DefaultDistVersion)
		payload["min_distribution"] = cfg.MinDistribution
		payload["server_access_type"] = cfg.ServerAccessType
		payload["restrict_server_access_to"] = cfg.RestrictServerAccessTo
		payload["use_50_percent_heap"] = cfg.Use50PercentHeap
		payload["is_internal"] = cfg.IsInternal
		if len(cfg.CustomDeployParams) > 0 {
			payload["custom_deploy_params"] = cfg.CustomDeployParams
		}
	}

	if selected.Benchmark {
		if cfg.ClusterEndpoint != "" {
			payload["cluster_endpoint"] = cfg.ClusterEndpoint
		}
		payload["workload_type"] = cfg.WorkloadType
		payload["pipeline"] = stringOr(cfg.Pipeline, DefaultPipeline)
		payload["ec2_instance_type"] = stringOr(cfg.EC2InstanceType, DefaultEC2InstanceType)
		payload["benchmark_timeout_minutes"] = intOr(cfg.BenchmarkTimeoutMinutes, DefaultBenchmarkTimeoutMin)
		if cfg.SubnetID != "" {
			payload["subnet_id"] = cfg.SubnetID
		}
		if cfg.SecurityGroupID != "" {
			payload["security_group_id"] = cfg.SecurityGroupID
		}
		if len(cfg.CustomBenchmarkParams) > 0 {
			payload["custom_benchmark_params"] = cfg.CustomBenchmarkParams
		}
	}

	return payload
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func intOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
