// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider credentials from a directory of plain-text
// files. Each file holds one secret: the filename is the key name and the
// trimmed file contents are the value. Environment variables fill keys the
// directory does not provide.
//
// Supported key files: ads-api-token, semantic-scholar-api-key, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/rankcompare/internal/provider"
)

// Key file names.
const (
	KeyADSToken           = "ads-api-token"
	KeySemanticScholarKey = "semantic-scholar-api-key"
	KeyOpenAlexEmail      = "openalex-email"
)

// envFallback maps key names to the environment variables consulted when
// the secrets directory has no file for the key.
var envFallback = map[string]string{
	KeyADSToken:           "ADS_API_TOKEN",
	KeySemanticScholarKey: "S2_API_KEY",
	KeyOpenAlexEmail:      "OPENALEX_EMAIL",
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log logrus.FieldLogger) (map[string]string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.WithField("secret", name).WithError(err).Warn("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Credentials loads dir and maps the known keys to provider credentials,
// falling back to environment variables for missing keys.
func Credentials(dir string, log logrus.FieldLogger) (provider.Credentials, error) {
	s, err := Load(dir, log)
	if err != nil {
		return provider.Credentials{}, err
	}
	get := func(key string) string {
		if v := s[key]; v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(envFallback[key]))
	}
	return provider.Credentials{
		ADSToken:           get(KeyADSToken),
		SemanticScholarKey: get(KeySemanticScholarKey),
		OpenAlexEmail:      get(KeyOpenAlexEmail),
	}, nil
}
