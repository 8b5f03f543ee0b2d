// Package app is the composition root for fblog.
//
// # Overview
//
// Run turns command-line options into a running pipeline:
//
//  1. Load the config file and select a profile
//  2. Layer the command-line overrides on top and apply defaults
//  3. Validate the settings
//  4. Compile the filter, the placeholder format and both templates
//  5. Open the input (file, stdin, tail or follow)
//  6. Process lines until the input ends or the output closes
//
// Steps 1 to 4 can fail; when they do nothing has been read or written yet.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> LoadSettings()     profile + overrides + defaults
//	       ├─────> filter.New()       Lua predicate
//	       ├─────> substitution.New() placeholder delimiters
//	       ├─────> render.New()       main and additional templates
//	       ├─────> logtail.Reader()   input stream
//	       └─────> process.Run()      per-line pipeline (blocks)
//
// Diagnostics go to Stderr through a logrus logger; rendered lines go to
// Stdout.
package app
