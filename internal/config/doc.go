// Package config loads meetview's runtime configuration from the process
// environment.
//
// Variable names match the broker's conventions (COMPOSIO_*), so an existing
// .env file can be reused unchanged. An optional .env file is read with
// godotenv before the environment is decoded with envconfig.
//
// The broker API key and the calendar auth-config id are deliberately not
// required at startup. The connection initiator checks them per request
// (RequireBrokerKey, MissingSettingError) so that a half-configured
// deployment still serves health checks and reports a precise Misconfigured
// error to callers.
package config
