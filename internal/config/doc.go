// Package config handles configuration loading and merging for tabfy.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--delimiter, --mode, --strict, --timeout, --theme, etc.)
//  2. Environment variables (TABFY_DELIMITER, TABFY_MODE, NO_COLOR, ...)
//  3. Config file (.tabfy.yaml or .tabfy.toml in the working directory, or
//     config.yaml / config.toml under ~/.config/tabfy)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
//
// # Schemas
//
// The config file may list extra schemas. They are matched before the built-in
// ones, in file order:
//
//	schemas:
//	  - name: docker-ps
//	    pattern: '^\s*docker\s+ps\b'
//	    recipe: "from ssv"
//
// # Environment Variables
//
// The following environment variables are recognized:
//
//   - TABFY_DELIMITER: single character that ends the source command
//   - TABFY_INTERPRETER: interpreter command line, e.g. "nu --stdin -c"
//   - TABFY_TIMEOUT: per-process timeout as a Go duration ("30s", "0" for none)
//   - TABFY_MODE: "record" or "per-key"
//   - TABFY_STRICT: "true" or "1" to fail on non-object elements
//   - TABFY_THEME, TABFY_FORMAT: rendering choices
//   - NO_COLOR: any non-empty value forces the mono theme
//   - TABFY_DEBUG: any non-empty value enables debug logging
package config
