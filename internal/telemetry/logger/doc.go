// Package logger provides structured logging for EducationELLy.
//
// The Logger interface is backed by zap:
//
//   - logger.go: configuration, level control and the global logger
//   - zap.go: the zap-backed implementation
//   - context.go: context propagation of the logger, request and trace IDs
//   - redact.go: masking of credentials and session tokens
package logger
