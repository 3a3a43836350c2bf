// Package domain defines the core domain models for EducationELLy.
//
// Domain models are plain value objects without IO dependencies:
//
//   - Student: ELL program record with field validation
//   - User: account with a bcrypt password hash
//   - Identity: the caller resolved from a session token
//   - Errors: the typed error taxonomy surfaced to GraphQL clients
package domain
