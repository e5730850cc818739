// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage keeps photos in an S3-compatible bucket with path-style
// addressing (MinIO, Ceph, Hetzner).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"schoolarchives/internal/imaging"
)

// Client wraps an S3 client bound to one public bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string
}

// New returns (nil, nil) when endpoint or credentials are missing so the
// server can start without photo uploads.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}
	endpoint = strings.TrimRight(endpoint, "/")

	return &Client{
		s3: s3.New(s3.Options{
			Region:       region,
			BaseEndpoint: aws.String(endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
			UsePathStyle: true,
		}),
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload writes an object with public-read ACL.
func (c *Client) Upload(ctx context.Context, key, contentType string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// FileURL is the public URL of key.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// KeyFromURL reverses FileURL. URLs of other hosts report false.
func (c *Client) KeyFromURL(rawURL string) (string, bool) {
	for _, base := range []string{c.publicURL, c.endpoint + "/" + c.bucket} {
		if base == "" {
			continue
		}
		if key, ok := strings.CutPrefix(rawURL, base+"/"); ok && key != "" {
			return key, true
		}
	}
	return "", false
}

// PhotoURLs are the public locations of an uploaded photo.
type PhotoURLs struct {
	ImageURL string
	ThumbURL string
}

// PutPhoto renders the display and thumbnail variants of original and
// uploads both under collections/{collectionID}/. A failed thumbnail
// upload removes the already uploaded display image.
func (c *Client) PutPhoto(ctx context.Context, collectionID uuid.UUID, original []byte) (PhotoURLs, error) {
	variants, err := imaging.Process(original, imaging.Display, imaging.Thumb)
	if err != nil {
		return PhotoURLs{}, err
	}

	base := fmt.Sprintf("collections/%s/%s", collectionID, uuid.NewString())
	var uploaded []string
	for _, v := range variants {
		key := base + "-" + v.Name + v.Ext
		if err := c.Upload(ctx, key, v.ContentType, v.Data); err != nil {
			for _, k := range uploaded {
				c.Delete(ctx, k)
			}
			return PhotoURLs{}, err
		}
		uploaded = append(uploaded, key)
	}

	return PhotoURLs{ImageURL: c.FileURL(uploaded[0]), ThumbURL: c.FileURL(uploaded[1])}, nil
}

// DeletePhoto removes the objects behind a photo's URLs. Foreign URLs
// (pasted links) are ignored.
func (c *Client) DeletePhoto(ctx context.Context, urls ...string) error {
	for _, u := range urls {
		key, ok := c.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := c.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
