// Package cache indexes pipeline artifacts by content fingerprint so repeated
// runs over the same inputs skip finished work. Keys are SHA-256 digests of
// the stage inputs (file contents plus parameters); records are small JSON
// files grouped by category, and the artifacts they point at live either in
// the store's artifacts tree or wherever the producing stage wrote them.
package cache
