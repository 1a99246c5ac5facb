package bapp

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// SecretReader reads the string value of a secret.
type SecretReader interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// CachedSecretReader reads secrets from AWS Secrets Manager through a cache, so
// handlers may read a secret on every request and still see rotations.
type CachedSecretReader struct {
	cache *secretcache.Cache
}

// NewCachedSecretReader builds the reader on top of the app's aws config.
func NewCachedSecretReader(cfg aws.Config) (*CachedSecretReader, error) {
	client := secretsmanager.NewFromConfig(cfg)

	cache, err := secretcache.New(func(c *secretcache.Cache) { c.Client = client })
	if err != nil {
		return nil, errors.Wrap(err, "failed to create secret cache")
	}

	return &CachedSecretReader{cache: cache}, nil
}

// GetSecretString implements [SecretReader].
func (r *CachedSecretReader) GetSecretString(ctx context.Context, secretID string) (string, error) {
	s, err := r.cache.GetSecretStringWithContext(ctx, secretID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get secret %q", secretID)
	}

	return s, nil
}

// readSecret reads a secret and, given a gjson path, extracts a value from its
// JSON document.
func readSecret(ctx context.Context, reader SecretReader, secretID string, jsonPath ...string) (string, error) {
	switch {
	case reader == nil:
		return "", errors.New("bapp: no secret reader configured")
	case len(jsonPath) > 1:
		return "", errors.New("bapp: Secret accepts at most one jsonPath argument")
	}

	secret, err := reader.GetSecretString(ctx, secretID)
	if err != nil {
		return "", err
	}

	if len(jsonPath) == 0 || jsonPath[0] == "" {
		return secret, nil
	}

	if !gjson.Valid(secret) {
		return "", errors.Newf("secret %q is not a JSON document", secretID)
	}

	res := gjson.Get(secret, jsonPath[0])
	if !res.Exists() {
		return "", errors.Newf("secret path %q not found in secret %q", jsonPath[0], secretID)
	}

	return res.String(), nil
}
