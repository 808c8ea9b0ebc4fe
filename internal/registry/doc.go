// Package registry talks to the npm registry HTTP API.
//
// Client fetches packuments, resolves version specs (dist-tags, exact
// versions, partial major[.minor] versions) to manifests, and downloads
// tarballs while verifying their published integrity.
package registry
