package runner

// Exported aliases for testing internal functions from
// the runner_test package.

// LoadSelectionForTest exposes loadSelection.
var LoadSelectionForTest = loadSelection

// SortedRuntimesForTest exposes sortedRuntimes.
var SortedRuntimesForTest = sortedRuntimes

// ProcessRuntimeForTest exposes processRuntime.
var ProcessRuntimeForTest = processRuntime
