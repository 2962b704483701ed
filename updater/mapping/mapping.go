// Package mapping defines the static tables binding
// runtime names to their downstream repositories and
// version-bearing files.
package mapping

import "sort"

// Target identifies one downstream repository and the
// files within it that carry a runtime version.
type Target struct {
	// Owner is the hosting organisation.
	Owner string

	// Repo is the repository name (without owner).
	Repo string

	// Files are repository-relative paths to patch, in
	// order.
	Files []string
}

// FullName returns the "owner/repo" form used in remote
// URLs and log lines.
func (t Target) FullName() string {
	return t.Owner + "/" + t.Repo
}

// Table is an immutable runtime name to target mapping.
// Build one with the pipeline constructors and pass it
// explicitly; there is no package-level lookup state.
type Table struct {
	targets map[string]Target
}

// NewTable copies targets into a Table.
func NewTable(targets map[string]Target) Table {
	cp := make(map[string]Target, len(targets))

	for name, target := range targets {
		cp[name] = target
	}

	return Table{targets: cp}
}

// Lookup returns the target for runtime and whether one
// exists.
func (t Table) Lookup(runtime string) (Target, bool) {
	target, ok := t.targets[runtime]

	return target, ok
}

// Runtimes returns the sorted runtime names in the
// table.
func (t Table) Runtimes() []string {
	names := make([]string, 0, len(t.targets))

	for name := range t.targets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// AnnotationTargets returns the table for the manifest
// annotation pipeline. Every runtime maps into the
// shared odh-model-controller repository; updates are
// combined into a single pull request.
func AnnotationTargets() Table {
	const (
		owner = "red-hat-data-services"
		repo  = "odh-model-controller"
	)

	return NewTable(map[string]Target{
		"vllm": {
			Owner: owner,
			Repo:  repo,
			Files: []string{
				"config/runtimes/vllm-cuda-template.yaml",
				"config/runtimes/vllm-multinode-template.yaml",
			},
		},
		"vllm-rocm": {
			Owner: owner,
			Repo:  repo,
			Files: []string{
				"config/runtimes/vllm-rocm-template.yaml",
			},
		},
		"vllm-cpu": {
			Owner: owner,
			Repo:  repo,
			Files: []string{
				"config/runtimes/vllm-cpu-template.yaml",
			},
		},
		"vllm-gaudi": {
			Owner: owner,
			Repo:  repo,
			Files: []string{
				"config/runtimes/vllm-gaudi-template.yaml",
			},
		},
		"ovms": {
			Owner: owner,
			Repo:  repo,
			Files: []string{
				"config/runtimes/ovms-kserve-template.yaml",
				"config/runtimes/ovms-mm-template.yaml",
			},
		},
	})
}

// BuildArgTargets returns the table for the Dockerfile
// build-argument pipeline. Each runtime has its own
// repository and gets its own pull request.
func BuildArgTargets() Table {
	const owner = "red-hat-data-services"

	return NewTable(map[string]Target{
		"vllm": {
			Owner: owner,
			Repo:  "vllm",
			Files: []string{"Dockerfile.ubi"},
		},
		"vllm-rocm": {
			Owner: owner,
			Repo:  "vllm-rocm",
			Files: []string{"Dockerfile.rom.ubi"},
		},
		"vllm-cpu": {
			Owner: owner,
			Repo:  "vllm-cpu",
			Files: []string{
				"Dockerfile.ppc64le.ubi",
				"Dockerfile.s390x.ubi",
			},
		},
		"vllm-gaudi": {
			Owner: owner,
			Repo:  "vllm-gaudi",
			Files: []string{"Dockerfile.hpu.ubi"},
		},
	})
}
