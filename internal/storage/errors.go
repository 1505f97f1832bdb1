package storage

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

const (
	codeNoSuchKey    = "NoSuchKey"
	codeNoSuchBucket = "NoSuchBucket"
)

// s3Error unwraps the object store's error response from err.
func s3Error(err error) (minio.ErrorResponse, bool) {
	var resp minio.ErrorResponse
	ok := errors.As(err, &resp)
	return resp, ok
}

// IsNoSuchKey reports whether the store answered that the object is missing.
// HEAD responses carry no body, so a bare 404 counts as well.
func IsNoSuchKey(err error) bool {
	resp, ok := s3Error(err)
	if !ok {
		return false
	}
	return resp.Code == codeNoSuchKey || (resp.Code == "" && resp.StatusCode == http.StatusNotFound)
}

// IsNoSuchBucket reports whether the store answered that the bucket is missing.
func IsNoSuchBucket(err error) bool {
	resp, ok := s3Error(err)
	return ok && resp.Code == codeNoSuchBucket
}
