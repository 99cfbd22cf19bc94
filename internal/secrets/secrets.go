// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package secrets keeps the provider API key out of configuration files by
// storing it in the OS keyring and resolving keyring:// references.
package secrets

const (
	// DefaultService is the keyring service Parley stores secrets under.
	DefaultService = "parley"

	// APIKeyName is the keyring entry holding the OpenAI API key.
	APIKeyName = "openai_api_key"
)

// APIKeyURI is the reference to put in provider.api_key after running
// `parley secret set`.
var APIKeyURI = URI(DefaultService, APIKeyName)

// Store saves and loads secrets by service and key.
type Store interface {
	// Set saves value, replacing any previous value.
	Set(service, key, value string) error

	// Get returns the stored value. A missing entry is reported with
	// CodeSecretNotFound.
	Get(service, key string) (string, error)

	// Delete removes the entry. A missing entry is reported with
	// CodeSecretNotFound.
	Delete(service, key string) error
}
