// Package buildinfo carries values stamped by the linker at build time.
package buildinfo

// Version is overridden on release builds via
// -ldflags "-X .../internal/buildinfo.Version=<tag>".
var Version = "dev"
