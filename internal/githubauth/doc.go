// Package githubauth loads the GitHub access token npm-node-sync pushes and opens pull requests with.
package githubauth
