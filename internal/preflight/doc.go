// Package preflight validates the local environment before a pipeline run:
// directory permissions, free disk space, and service reachability.
package preflight
