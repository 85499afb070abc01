// Package s3 publishes onboarding reports to S3-compatible object storage
// such as Hetzner Object Storage, MinIO or AWS S3.
package s3
