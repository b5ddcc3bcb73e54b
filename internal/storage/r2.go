// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage uploads objects to Cloudflare R2 through its S3 API.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage errors.
var (
	ErrNotConfigured  = errors.New("object storage is not configured")
	ErrBucketNotFound = errors.New("bucket does not exist")
)

// R2Config holds R2 credentials.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	// Endpoint overrides the account endpoint, e.g. "http://127.0.0.1:9000".
	Endpoint string
}

// IsConfigured reports whether every required setting is present.
func (c R2Config) IsConfigured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// Object is a stored upload.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Uploader stores objects.
type Uploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Object, error)
}

// R2 is an Uploader backed by an R2 bucket.
type R2 struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	endpointURL   string
}

// NewR2 creates an R2 client. No request is made until it is used.
func NewR2(cfg R2Config) (*R2, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	host := cfg.AccountID + ".r2.cloudflarestorage.com"
	secure := true
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid storage endpoint %q", cfg.Endpoint)
		}
		host = u.Host
		secure = u.Scheme == "https"
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("creating r2 client: %w", err)
	}

	scheme := "https"
	if !secure {
		scheme = "http"
	}
	return &R2{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		endpointURL:   scheme + "://" + host + "/" + cfg.Bucket,
	}, nil
}

// Check verifies the credentials can see the bucket.
func (r *R2) Check(ctx context.Context) error {
	ok, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if !ok {
		return ErrBucketNotFound
	}
	return nil
}

// Put implements Uploader.
func (r *R2) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Object, error) {
	info, err := r.client.PutObject(ctx, r.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return Object{}, fmt.Errorf("uploading %s: %w", key, err)
	}
	return Object{Key: key, URL: r.URL(key), Size: info.Size}, nil
}

// URL returns the address an object is served from: the public base URL
// when configured, otherwise the bucket endpoint.
func (r *R2) URL(key string) string {
	if r.publicBaseURL != "" {
		return r.publicBaseURL + "/" + key
	}
	return r.endpointURL + "/" + key
}

// ObjectKey builds the key for an upload: uploads/YYYY/MM/<uuid>.<ext>.
func ObjectKey(now time.Time, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	return path.Join("uploads", now.UTC().Format("2006"), now.UTC().Format("01"), name)
}
