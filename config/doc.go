// Package config loads the application configuration from a YAML file, the
// process environment, and an optional .env file, in that precedence order.
// Collaborator sections carry a provider name plus an opaque settings map
// that is handed to the matching provider factory.
package config
