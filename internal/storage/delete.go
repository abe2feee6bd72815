package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/s5bridge/s5bridge/internal/constants"
)

// ErrEmptyPrefix guards against deleting the whole bucket by accident.
var ErrEmptyPrefix = errors.New("refusing to delete with an empty prefix")

// DeleteObjects removes up to constants.DeleteBatchSize keys in one request
// and returns how many were deleted. Keys the server refused are reported
// in a *DeleteError.
func (c *Client) DeleteObjects(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if len(keys) > constants.DeleteBatchSize {
		return 0, fmt.Errorf("cannot delete %d keys in one request (max %d)", len(keys), constants.DeleteBatchSize)
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	var out *s3.DeleteObjectsOutput
	err := c.do(ctx, func() error {
		var err error
		out, err = c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		return err
	})
	if err != nil {
		return 0, &ListingError{Op: "DeleteObjects", Err: err}
	}

	if len(out.Errors) == 0 {
		return len(keys), nil
	}
	failed := make(map[string]string, len(out.Errors))
	for _, e := range out.Errors {
		failed[aws.ToString(e.Key)] = aws.ToString(e.Message)
	}
	return len(keys) - len(failed), &DeleteError{Failed: failed}
}

// DeletePrefix removes every object under prefix in batches.
//
// Each round lists the first page under prefix and deletes it. The loop ends
// when a page is empty or not truncated, so an empty prefix listing is a
// no-op. It returns the number of objects deleted.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, ErrEmptyPrefix
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		page, err := c.ListPage(ctx, prefix, "", "", constants.DeleteBatchSize)
		if err != nil {
			return total, err
		}
		if len(page.Objects) == 0 {
			return total, nil
		}

		keys := make([]string, len(page.Objects))
		for i, obj := range page.Objects {
			keys[i] = obj.Key
		}

		deleted, err := c.DeleteObjects(ctx, keys)
		total += deleted
		if err != nil {
			return total, err
		}
		c.logger.Debugf("deleted %d objects under %s", deleted, prefix)

		if !page.Truncated {
			return total, nil
		}
	}
}
