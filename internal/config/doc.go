// Package config loads fblog profiles from a TOML file.
//
// # Overview
//
// A profile is a saved set of settings: candidate keys, formats, a filter and
// a level map. The file's top-level keys form the "default" profile and every
// [profiles.<name>] table a named one. Command-line flags are layered on top
// of the selected profile by settings.Apply.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/fblog/config.toml (default)
//  3. If the config file doesn't exist, every profile is empty
//
// # Profile Selection
//
// Config.Profile picks, in order: the name given on the command line, the
// file's default_profile, the top-level keys. An unknown name is an error
// that lists the known profiles. "fblog use-profile <name>" stores the name
// as default_profile through SaveDefaultProfile.
//
// # TOML Format
//
//	default_profile = "k8s"
//	message_keys = ["msg"]
//
//	[profiles.k8s]
//	level_keys = ["severity"]
//	context_keys = ["labels"]
//	placeholder_format = "${key}"
//	dump_all = true
//
//	[profiles.k8s.level_map]
//	"INFO" = "info"
//
// Recognized keys: message_keys, time_keys, level_keys, additional_values,
// excluded_values, context_keys, main_line_format, additional_value_format,
// placeholder_format, filter, dump_all, with_prefix, print_lua, level_map.
// Unknown keys are ignored.
//
// # Error Handling
//
// Errors are wrapped with context ("open config", "parse config", ...).
// A missing file is not an error.
package config
