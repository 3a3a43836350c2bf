// Package memory provides in-process storage for EducationELLy.
//
// Documents live in a sharded concurrent map as JSON values, so the
// memory driver behaves like the persistent ones: callers never share
// pointers with the store, and every write goes through validation and
// uniqueness checks.
package memory
