// Package github implements pull request creation on
// GitHub via the REST API.
package github
