package storage

import (
	"context"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/s5bridge/s5bridge/internal/constants"
)

// Object is a single listed key.
type Object struct {
	Key  string
	Size int64
}

// Page is one ListObjectsV2 response.
type Page struct {
	// Prefixes holds the common prefixes ("folders") when a delimiter was given.
	Prefixes []string
	Objects  []Object

	// KeyCount is the number of keys and prefixes in the page.
	KeyCount int

	Truncated bool
	NextToken string
}

func pageFromOutput(out *s3.ListObjectsV2Output) *Page {
	p := &Page{
		KeyCount:  int(aws.ToInt32(out.KeyCount)),
		Truncated: aws.ToBool(out.IsTruncated),
		NextToken: aws.ToString(out.NextContinuationToken),
	}
	for _, cp := range out.CommonPrefixes {
		p.Prefixes = append(p.Prefixes, aws.ToString(cp.Prefix))
	}
	for _, obj := range out.Contents {
		p.Objects = append(p.Objects, Object{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		})
	}
	if out.KeyCount == nil {
		p.KeyCount = len(p.Prefixes) + len(p.Objects)
	}
	return p
}

// ListBuckets returns the names of all buckets visible to the credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]string, error) {
	var out *s3.ListBucketsOutput
	err := c.do(ctx, func() error {
		var err error
		out, err = c.api.ListBuckets(ctx, &s3.ListBucketsInput{})
		return err
	})
	if err != nil {
		return nil, &ListingError{Op: "ListBuckets", Err: err}
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// BucketExists reports whether the configured bucket is reachable.
//
// The bucket list is consulted first. Credentials scoped to a single bucket
// are often refused ListBuckets, so an access-denied answer falls back to
// HeadBucket.
func (c *Client) BucketExists(ctx context.Context) (bool, error) {
	names, err := c.ListBuckets(ctx)
	if err == nil {
		return slices.Contains(names, c.bucket), nil
	}
	if !IsAccessDenied(err) {
		return false, err
	}

	err = c.do(ctx, func() error {
		_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, &ListingError{Op: "HeadBucket", Prefix: c.bucket, Err: err}
	}
}

// ListPage fetches a single page. An empty token starts from the beginning;
// maxKeys <= 0 uses the server default.
func (c *Client) ListPage(ctx context.Context, prefix, delimiter, token string, maxKeys int32) (*Page, error) {
	input := c.listInput(prefix, delimiter)
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(maxKeys)
	}

	var out *s3.ListObjectsV2Output
	err := c.do(ctx, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, constants.ListingTimeout)
		defer cancel()
		var err error
		out, err = c.api.ListObjectsV2(reqCtx, input)
		return err
	})
	if err != nil {
		return nil, &ListingError{Op: "ListObjectsV2", Prefix: prefix, Err: err}
	}
	return pageFromOutput(out), nil
}

// ListPages walks every page under prefix in order, calling fn for each.
// Returning an error from fn stops the walk and returns that error.
func (c *Client) ListPages(ctx context.Context, prefix, delimiter string, fn func(*Page) error) error {
	input := c.listInput(prefix, delimiter)
	input.MaxKeys = aws.Int32(constants.ListPageSize)

	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		var out *s3.ListObjectsV2Output
		err := c.do(ctx, func() error {
			var err error
			out, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return &ListingError{Op: "ListObjectsV2", Prefix: prefix, Err: err}
		}
		if err := fn(pageFromOutput(out)); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether at least one object starts with prefix.
func (c *Client) Exists(ctx context.Context, prefix string) (bool, error) {
	page, err := c.ListPage(ctx, prefix, "", "", 1)
	if err != nil {
		return false, err
	}
	return page.KeyCount > 0 || len(page.Objects) > 0, nil
}

func (c *Client) listInput(prefix, delimiter string) *s3.ListObjectsV2Input {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}
	return input
}
