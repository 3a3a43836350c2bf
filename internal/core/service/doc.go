// Package service provides the domain services for EducationELLy.
//
// Services hold the business rules and orchestrate the storage
// collections. They depend on the storage interfaces only, so every
// driver (memory, badger, mongo) can back them.
//
// This package contains:
//
//   - TokenService: session token issue, verification and decoding
//   - UserService: sign-up, sign-in and user lookup
//   - StudentService: student CRUD, search and batch lookup
//   - Classify / WithErrorHandling: the single error classification point
//
// Services are stateless and safe for concurrent use.
package service
