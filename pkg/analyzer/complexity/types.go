package complexity

import "fmt"

// Metrics represents the structural measurements of one function.
type Metrics struct {
	BranchCount  int `json:"branch_count" yaml:"branch_count" toon:"branch_count"`
	MaxDepth     int `json:"max_depth" yaml:"max_depth" toon:"max_depth"`
	LogicalLines int `json:"logical_lines" yaml:"logical_lines" toon:"logical_lines"`
}

// Conditions is the outcome of a condition count, broken down by construct.
type Conditions struct {
	If       int `json:"if"`
	For      int `json:"for"`
	While    int `json:"while"`
	Match    int `json:"match"`
	MaxDepth int `json:"max_depth"`
}

// Total returns the branch count across all constructs.
func (c Conditions) Total() int {
	return c.If + c.For + c.While + c.Match
}

// Thresholds defines the limits above which a function is flagged.
// Comparisons are strict: a metric equal to its limit passes.
type Thresholds struct {
	MaxBranches int `json:"max_branches" koanf:"max_branches" toml:"max_branches" yaml:"max_branches" toon:"max_branches"`
	MaxDepth    int `json:"max_depth" koanf:"max_depth" toml:"max_depth" yaml:"max_depth" toon:"max_depth"`
	MaxLines    int `json:"max_lines" koanf:"max_lines" toml:"max_lines" yaml:"max_lines" toon:"max_lines"`
}

// DefaultThresholds returns the review policy limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxBranches: 4,
		MaxDepth:    2,
		MaxLines:    50,
	}
}

// Exceeds reports whether any metric is strictly above its threshold.
func (m Metrics) Exceeds(t Thresholds) bool {
	return m.BranchCount > t.MaxBranches ||
		m.MaxDepth > t.MaxDepth ||
		m.LogicalLines > t.MaxLines
}

// Violations describes each threshold the metrics exceed.
func (m Metrics) Violations(t Thresholds) []string {
	var v []string
	if m.BranchCount > t.MaxBranches {
		v = append(v, fmt.Sprintf("branches %d > %d", m.BranchCount, t.MaxBranches))
	}
	if m.MaxDepth > t.MaxDepth {
		v = append(v, fmt.Sprintf("depth %d > %d", m.MaxDepth, t.MaxDepth))
	}
	if m.LogicalLines > t.MaxLines {
		v = append(v, fmt.Sprintf("lines %d > %d", m.LogicalLines, t.MaxLines))
	}
	return v
}
