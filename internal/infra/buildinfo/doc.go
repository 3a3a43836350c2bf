// Package buildinfo exposes the version stamped into the gateway binaries.
//
// Release builds set the values through ldflags:
//
//	go build -ldflags "-X github.com/educationelly/educationelly-graphql/internal/infra/buildinfo.Version=v1.2.0" ./cmd/elly-server
//
// Development builds fall back to the VCS settings recorded by the Go
// toolchain.
package buildinfo
