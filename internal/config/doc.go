// Package config defines the format-agnostic configuration model for the
// application, along with the Loader interface used to populate it from
// configuration files.
//
// The `config.Model` is the single source of truth for the circuit graph,
// the on-chain settings and the relay services. Concrete loaders, such as the
// HCL one, live in separate packages.
package config
