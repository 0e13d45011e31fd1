package container

import (
	"bytes"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nicolagi/bajoo-sync/internal/syncerr"
)

var log = logrus.WithField("pkg", "container")

// S3Container backs one remote container with an S3 bucket prefix.
// Content hashes are the S3 ETag, which is sufficient for the
// plaintext-is-already-encrypted blobs this store holds (no
// multipart uploads, so ETag is a plain MD5).
type S3Container struct {
	client *s3.S3
	bucket string
	prefix string
}

var _ Container = (*S3Container)(nil)

// S3Config carries the pieces of syncconfig relevant to S3Container
// construction.
type S3Config struct {
	Region  string
	Profile string
	Bucket  string
	Prefix  string
}

// NewS3Container builds a Container backed by the given bucket,
// scoping every key under prefix (one bucket can host many
// containers this way).
func NewS3Container(c S3Config) (*S3Container, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(c.Region),
		Credentials: credentials.NewSharedCredentials("", c.Profile),
		MaxRetries:  aws.Int(16),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &S3Container{
		client: s3.New(sess),
		bucket: c.Bucket,
		prefix: c.Prefix,
	}, nil
}

func (s *S3Container) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *S3Container) Upload(path string, content io.Reader) (UploadResult, error) {
	data, err := ioutil.ReadAll(content)
	if err != nil {
		return UploadResult{}, errors.WithStack(err)
	}
	output, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return UploadResult{}, classifyS3Error(err)
	}
	hash := ""
	if output.ETag != nil {
		hash = *output.ETag
	}
	return UploadResult{NewRemoteHash: hash}, nil
}

func (s *S3Container) Download(path string) (io.ReadCloser, error) {
	output, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, classifyS3Error(err)
	}
	return output.Body, nil
}

func (s *S3Container) Remove(path string) error {
	if _, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	}); err != nil {
		return classifyS3Error(err)
	}
	return nil
}

func (s *S3Container) ListFiles() ([]FileEntry, error) {
	var entries []FileEntry
	input := &s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}
	for {
		output, err := s.client.ListObjects(input)
		if err != nil {
			return nil, classifyS3Error(err)
		}
		for _, o := range output.Contents {
			path := *o.Key
			if s.prefix != "" {
				path = path[len(s.prefix)+1:]
			}
			hash := ""
			if o.ETag != nil {
				hash = *o.ETag
			}
			entries = append(entries, FileEntry{Path: path, RemoteHash: hash})
		}
		if output.NextMarker == nil {
			break
		}
		input.Marker = output.NextMarker
	}
	return entries, nil
}

// classifyS3Error maps S3 status codes onto sentinel errors that
// callers can match with errors.Is: 404 wraps ErrNotFound (so
// RemovedLocalFilesTask's "404 is success" rule applies), 408 and 429
// wrap syncerr.ErrNetworkTimeout, 403 wraps syncerr.ErrPermissionDenied
// and 507 wraps syncerr.ErrQuotaExceeded. Any other error is wrapped
// with a stack trace for diagnostics.
func classifyS3Error(err error) error {
	if rfErr, ok := err.(awserr.RequestFailure); ok {
		switch rfErr.StatusCode() {
		case http.StatusNotFound:
			return errors.Wrapf(ErrNotFound, "s3: %v", err)
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return errors.Wrapf(syncerr.ErrNetworkTimeout, "s3: %v", err)
		case http.StatusForbidden:
			return errors.Wrapf(syncerr.ErrPermissionDenied, "s3: %v", err)
		case http.StatusInsufficientStorage:
			return errors.Wrapf(syncerr.ErrQuotaExceeded, "s3: %v", err)
		}
	}
	log.WithError(err).Warn("unclassified s3 error")
	return errors.WithStack(err)
}
