// Package config loads the host configuration (sitebuilder.yaml).
//
// The file is optional. Values may reference environment variables with
// ${VAR}; .env.local and .env next to the file are loaded first without
// overriding variables that are already set. SITEBUILDER_LOG_LEVEL and
// SITEBUILDER_ROOT override the corresponding fields after parsing.
package config
