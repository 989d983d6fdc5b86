// Package cli implements the ebitmap command line tool.
//
// Each subcommand keeps its flags in an Options struct with Validate and Run
// methods; the global flags live on a Factory that opens the runtime and the
// snapshot store.
package cli
