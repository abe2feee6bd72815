// Package storagetest provides an in-memory bucket implementing storage.API.
package storagetest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Bucket is a fake S3 bucket. The zero value is not usable; call NewBucket.
type Bucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]int64

	// ListErr, when set, is returned by every ListObjectsV2 call.
	ListErr error
	// DeleteErr, when set, is returned by every DeleteObjects call.
	DeleteErr error
	// DenyListBuckets makes ListBuckets answer AccessDenied.
	DenyListBuckets bool

	ListCalls   int
	DeleteCalls int
	// DeleteBatches records the key count of each DeleteObjects call.
	DeleteBatches []int
}

// NewBucket creates an empty bucket.
func NewBucket(name string) *Bucket {
	return &Bucket{name: name, objects: map[string]int64{}}
}

// Put adds or replaces an object.
func (b *Bucket) Put(key string, size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = size
}

// Keys returns every key in lexical order.
func (b *Bucket) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sortedKeys()
}

func (b *Bucket) sortedKeys() []string {
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Bucket) ListBuckets(ctx context.Context, _ *s3.ListBucketsInput, _ ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	if b.DenyListBuckets {
		return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
	}
	return &s3.ListBucketsOutput{
		Buckets: []types.Bucket{{Name: aws.String(b.name)}},
	}, nil
}

func (b *Bucket) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != b.name {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadBucketOutput{}, nil
}

// ListObjectsV2 honours Prefix, Delimiter, MaxKeys (default 1000) and
// ContinuationToken. Tokens are indexes into the sorted key list.
func (b *Bucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ListCalls++

	if b.ListErr != nil {
		return nil, b.ListErr
	}
	if aws.ToString(in.Bucket) != b.name {
		return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "The specified bucket does not exist"}
	}

	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)
	maxKeys := int(aws.ToInt32(in.MaxKeys))
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	var keys []string
	for _, k := range b.sortedKeys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "bad token"}
		}
		start = n
	}

	out := &s3.ListObjectsV2Output{Name: aws.String(b.name)}
	count := 0
	i := start
	for i < len(keys) && count < maxKeys {
		key := keys[i]
		rest := key[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				count++
				for i < len(keys) && strings.HasPrefix(keys[i], cp) {
					i++
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(b.objects[key]),
		})
		count++
		i++
	}

	out.KeyCount = aws.Int32(int32(count))
	out.IsTruncated = aws.Bool(i < len(keys))
	if i < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(i))
	}
	return out, nil
}

func (b *Bucket) DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DeleteCalls++

	if b.DeleteErr != nil {
		return nil, b.DeleteErr
	}

	out := &s3.DeleteObjectsOutput{}
	b.DeleteBatches = append(b.DeleteBatches, len(in.Delete.Objects))
	for _, id := range in.Delete.Objects {
		key := aws.ToString(id.Key)
		delete(b.objects, key)
		out.Deleted = append(out.Deleted, types.DeletedObject{Key: aws.String(key)})
	}
	return out, nil
}
