// Package manifest loads and validates plugin manifests from a local
// plugin directory.
//
// A plugin directory holds one subdirectory per plugin, each with a
// plugin.json, plugin.yaml or plugin.yml describing its name, version and
// dependency ranges. Side-by-side versions of the same plugin use
// "<name>@<version>" directory names. The Scanner discovers the full set;
// the Watcher reports manifest changes so hosts can invalidate cached
// resolutions.
package manifest
