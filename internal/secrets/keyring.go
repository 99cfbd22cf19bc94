// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package secrets

import (
	"errors"

	parleyerr "github.com/parley-chat/parley/pkg/errors"
	"github.com/zalando/go-keyring"
)

// KeyringStore is a Store backed by the OS keyring: Keychain on macOS,
// the Secret Service on Linux and Credential Manager on Windows.
type KeyringStore struct{}

var _ Store = (*KeyringStore)(nil)

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	if value == "" {
		return parleyerr.New(parleyerr.CodeSecretInvalidInput, "secret set: value must not be empty")
	}

	if err := keyring.Set(service, key, value); err != nil {
		return parleyerr.Wrapf(err, parleyerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}

	value, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", parleyerr.Errorf(parleyerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", parleyerr.Wrapf(err, parleyerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return value, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}

	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return parleyerr.Errorf(parleyerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return parleyerr.Wrapf(err, parleyerr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

func checkRef(op, service, key string) error {
	if service == "" {
		return parleyerr.Errorf(parleyerr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return parleyerr.Errorf(parleyerr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}
