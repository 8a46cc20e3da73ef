// Package config holds the validated runtime configuration for the
// trading state service.
//
// Settings are built once at startup from three layers, in priority
// order: explicit overrides (a YAML file or a literal Settings value),
// environment variables, and declared defaults. Construction is atomic:
// every field is checked against its declared bound or enumerated set,
// all violations are reported together with the offending field names,
// and no partially-valid Settings value is ever produced.
//
// The constructed value is passed down explicitly; nothing in this
// package maintains process-wide state or configures log sinks.
package config
