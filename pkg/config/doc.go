// Package config defines the djaploy configuration model: the project
// config, per-host inventory entries, and backup settings.
//
// Configuration is authored in YAML (djaploy.yaml plus one inventory file
// per environment). Inventories that need to be computed rather than listed
// can be written as Starlark scripts (<env>.star) that produce the same host
// mappings. Raw documents are validated against CUE schemas before strict
// struct decoding, and struct-level validation aggregates every problem into
// a single error so misconfigurations surface before any remote action.
package config
