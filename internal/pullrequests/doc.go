// Package pullrequests keeps exactly one open npm update pull request per target version.
//
// Reconciler lists the open update pull requests in the base repository, decides
// whether to edit a matching one or open a new one, and closes the ones the new
// version supersedes.
package pullrequests
