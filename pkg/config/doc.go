// Package config loads cellar's engine configuration.
//
// Configuration is layered with koanf: the embedded defaults.toml is loaded
// first, then the user's config file (CELLAR_CONFIG, or
// $XDG_CONFIG_HOME/cellar/config.toml when present), then CELLAR_*
// environment variables, and finally explicit overrides supplied by the
// caller (for example CLI flags). Environment variables use a double
// underscore for nesting: CELLAR_FETCH__TIMEOUT sets fetch.timeout while
// CELLAR_MAKE_JOBS sets make_jobs.
package config
