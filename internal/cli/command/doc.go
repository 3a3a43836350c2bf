// Package command defines the ellyctl commands.
//
// ellyctl talks to a running gateway over HTTP (health, query, signin,
// students) and handles session tokens offline (token issue, decode,
// verify) with the same signing code the server uses.
package command
