// Package config handles configuration loading for the storefront client.
//
// # Configuration File
//
// Locations (in order):
//
//  1. Path from the --config flag
//  2. Path from STOREFRONT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/storefront/config.yaml
//  4. ~/.config/storefront/config.yaml
//
// A missing file is not an error; Default values apply. Files ending in
// .toml are read as TOML, everything else as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	checkout:
//	  callback_secret: "${STOREFRONT_CALLBACK_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
//	api:
//	  base_url: "https://api.escuelajs.co/api/v1"
//	  timeout: "15s"
//
//	storage:
//	  path: "~/.local/share/storefront/state.db"
//	  quota_bytes: 5242880   # 0 = unlimited
//
//	checkout:
//	  payment_link: "https://buy.stripe.com/..."   # empty disables checkout
//	  callback_secret: "${STOREFRONT_CALLBACK_SECRET}"  # >= 32 bytes
//	  confirmation_ttl: "24h"
//	  replay_cache_size: 10000
//
//	theme:
//	  default: "light"   # light, dark
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
