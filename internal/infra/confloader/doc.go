// Package confloader loads configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults (the pre-filled target struct)
//  2. YAML configuration file
//  3. Legacy environment variables (JWT_SECRET, MONGODB_URI, ...)
//  4. ELLY_* environment variables, "__" separating nested keys
//
// Watcher reports changes to the configuration file so that runtime
// settings such as the log level can be reloaded.
package confloader
