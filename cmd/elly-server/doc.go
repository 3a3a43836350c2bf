// Command elly-server runs the EducationELLy GraphQL gateway.
//
//	elly-server --config /etc/elly/server.yaml
//
// Settings come from the optional YAML file, then the legacy variables
// (NODE_ENV, JWT_SECRET, MONGODB_URI, REDIS_URL, PORT, CLIENT_URL), then
// ELLY_-prefixed variables such as ELLY_SERVER__ADDR. The log level is
// reloaded when the config file changes.
package main
