// Package output renders ellyctl results as tables, JSON or YAML.
package output
