package present

import "strings"

// labelExceptions holds field keys whose display labels cannot be
// derived mechanically. Everything else is title-cased word by word.
var labelExceptions = map[string]string{
	"manifest_yml":        "Manifest YAML",
	"s3_bucket":           "S3 Bucket",
	"s3_uri":              "S3 URI",
	"s3_info":             "S3 Info",
	"cpu_arch":            "CPU Architecture",
	"dist_version":        "Distribution Version",
	"distribution_url":    "Distribution URL",
	"ec2_instance_type":   "EC2 Instance Type",
	"use_50_percent_heap": "Use 50% Heap",
	"benchmark_id":        "Benchmark ID",
	"job_id":              "Job ID",
	"display_id":          "Display ID",
	"subnet_id":           "Subnet ID",
	"security_group_id":   "Security Group ID",
	"is_internal":         "Internal Infrastructure",
}

// FormatLabel turns a config or result field key into a display label.
// Known irregular keys come from the exceptions table; the rest are
// split on underscores and camelCase boundaries and title-cased.
func FormatLabel(key string) string {
	if label, ok := labelExceptions[key]; ok {
		return label
	}
	words := splitWords(key)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func splitWords(key string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z':
			flush()
			current.WriteRune(r + ('a' - 'A'))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	if len(words) == 0 {
		return []string{key}
	}
	return words
}
