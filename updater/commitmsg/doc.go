// Package commitmsg generates the branch names, commit
// messages, and pull request text that describe a set of
// runtime version updates.
package commitmsg
