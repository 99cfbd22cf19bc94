// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package secrets

import (
	"strings"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/spf13/viper"
)

const scheme = "keyring://"

// URI formats a keyring reference for service and key.
func URI(service, key string) string {
	return scheme + service + "/" + key
}

// IsURI reports whether value is a keyring:// reference.
func IsURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseURI splits keyring://service/key. The key may itself contain
// slashes.
func ParseURI(uri string) (service, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", "", parleyerr.Errorf(parleyerr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	service, key, ok = strings.Cut(rest, "/")
	if !ok || service == "" || key == "" {
		return "", "", parleyerr.Errorf(parleyerr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns value unchanged unless it is a keyring:// reference, in
// which case the referenced secret is returned.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}

	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Get(service, key)
	if err != nil {
		return "", parleyerr.Wrapf(err, parleyerr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// string in v with the
// referenced secret. The first reference that cannot be resolved is
// returned as an error.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	for _, key := range v.AllKeys() {
		raw, ok := v.Get(key).(string)
		if !ok || !IsURI(raw) {
			continue
		}

		resolved, err := Resolve(store, raw)
		if err != nil {
			return parleyerr.With(err, parleyerr.Field("config_key", key))
		}
		v.Set(key, resolved)
	}
	return nil
}
