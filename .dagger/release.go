package main

import (
	"context"
	"fmt"
	"path"

	"dagger/campus/internal/dagger"
)

// bucketCreds are the S3-compatible credentials used for release uploads.
type bucketCreds struct {
	endpoint        *dagger.Secret
	bucket          *dagger.Secret
	accessKeyId     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// upload syncs artifacts into the bucket under each of the given prefixes.
func (c *Campus) upload(ctx context.Context, artifacts *dagger.Directory, creds bucketCreds, prefixes ...string) error {
	bucketName, err := creds.bucket.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket name: %w", err)
	}

	endpointUrl, err := creds.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get endpoint: %w", err)
	}

	awsCli := dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", creds.accessKeyId).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", creds.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts")

	for _, prefix := range prefixes {
		destination := fmt.Sprintf("s3://%s", path.Join(bucketName, prefix))
		_, err = awsCli.
			WithExec([]string{"aws", "s3", "sync", ".", destination, "--endpoint-url", endpointUrl}).
			Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to upload artifacts to %s: %w", prefix, err)
		}
	}

	return nil
}

// Release builds versioned binaries and uploads them under the version
// prefix and "latest".
func (c *Campus) Release(
	ctx context.Context,

	// Version string (e.g., "v1.0.0")
	version string,

	// Git commit SHA
	commit string,

	// Bucket endpoint URL
	endpoint *dagger.Secret,

	// Bucket name
	bucket *dagger.Secret,

	// Bucket access key ID
	accessKeyId *dagger.Secret,

	// Bucket secret access key
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	artifacts := c.BuildRelease(ctx, version, commit)
	creds := bucketCreds{
		endpoint:        endpoint,
		bucket:          bucket,
		accessKeyId:     accessKeyId,
		secretAccessKey: secretAccessKey,
	}
	if err := c.upload(ctx, artifacts, creds, version, "latest"); err != nil {
		return artifacts, fmt.Errorf("could not upload release artifacts: %w", err)
	}
	return artifacts, nil
}
