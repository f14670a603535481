// Package launch turns process configuration into the immutable description
// of one encoder launch.
//
// Build is a pure function: it reads nothing but its argument and fails with
// a *ConfigurationError when the stream cannot be addressed, most notably
// when the stream key is missing. Source keeps the current configuration
// snapshot so a reloaded config file takes effect at the next launch.
package launch
