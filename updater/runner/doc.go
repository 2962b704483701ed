// Package runner orchestrates the version propagation
// pipelines. It loads the runtime versions document,
// narrows it to the runtimes a pipeline knows how to
// update, clones each downstream repository, patches the
// version-bearing files, publishes branches and pull
// requests, and writes the run summary and machine
// outputs.
//
// The entry points are RunAnnotations and RunBuildArgs,
// which accept a Config struct with all parameters for
// the run.
package runner
