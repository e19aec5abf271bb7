// Package version carries the build identity recorded in Config.GeneratedBy.
package version

// mainpkg is the canonical module path under which this package was built.
var mainpkg = "github.com/a2-ai/dvs"

// ver is the module version. Overwritten at link time via -ldflags.
var ver = "v0.0.0+unknown"

// revision is the VCS revision, set at link time.
var revision = ""

// Package returns the canonical import path the binary was built from.
func Package() string { return mainpkg }

// Version returns the module version the running binary was built from.
func Version() string { return ver }

// Revision returns the VCS revision used to build the program, if known.
func Revision() string { return revision }
