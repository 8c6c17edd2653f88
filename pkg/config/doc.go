// Package config defines the relay's YAML configuration: the HTTP
// server, the configuration store, caching, health tracking, rate
// limits, logging, and the audit trail. Loading applies defaults,
// environment overrides, and validation in that order.
package config
