// Package s3store is an optional durable cache.Store tier for
// multi-machine deployments, built on the same AWS SDK stack the
// teacher's rda/pkg/gbdx/s3.go uses for GBDX's customer data bucket
// access: github.com/aws/aws-sdk-go's s3/s3iface/s3manager packages,
// credentials obtained from a caller-supplied session.
//
// S3 PutObject is atomic per key, so the temp-file-then-rename dance
// localstore performs is unnecessary here — the publish step is a single
// PutObject of the fully encoded tile container; "last writer wins" is
// exactly spec.md §5's "concurrent writers of the same fingerprint
// produce the same bytes and the last rename wins — harmless".
package s3store

import (
	"bytes"
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/preligens-lab/buzzard/pkg/cache"
)

// Store persists tiles as objects under Prefix/<raster-id>/<tile-index>.<H>.<ext>.
type Store struct {
	Bucket     string
	Prefix     string
	svc        s3iface.S3API
	downloader s3manageriface.DownloaderAPI
	uploader   s3manageriface.UploaderAPI
}

var _ cache.Store = (*Store)(nil)

// New returns a Store backed by sess, mirroring how
// rda/pkg/gbdx.NewS3Accessor wires its downloader/service pair from a
// single AWS session.
func New(sess *session.Session, bucket, prefix string) *Store {
	return &Store{
		Bucket:     bucket,
		Prefix:     prefix,
		svc:        s3.New(sess),
		downloader: s3manager.NewDownloader(sess),
		uploader:   s3manager.NewUploader(sess),
	}
}

func (s *Store) key(id cache.TileID) string {
	if s.Prefix == "" {
		return id.RasterID + "/" + id.FileName()
	}
	return s.Prefix + "/" + id.RasterID + "/" + id.FileName()
}

func (s *Store) Write(ctx context.Context, id cache.TileID, payload []byte) error {
	buf, err := cache.EncodeTile(id.Fingerprint, payload)
	if err != nil {
		return err
	}
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
		Body:   bytes.NewReader(buf),
	})
	if err != nil {
		return errors.Wrapf(err, "s3store: failed uploading tile %s to s3://%s/%s", id.FileName(), s.Bucket, s.key(id))
	}
	return nil
}

func (s *Store) Read(ctx context.Context, id cache.TileID) ([]byte, error) {
	buf, err := s.getObject(ctx, id)
	if err != nil {
		return nil, err
	}
	status, payload, err := cache.ValidateBytes(buf, id.Fingerprint)
	if err != nil {
		return nil, err
	}
	if status != cache.StatusValid {
		return nil, errors.Errorf("s3store: tile %s is not valid, refusing to serve it", id.FileName())
	}
	return payload, nil
}

func (s *Store) Validate(ctx context.Context, id cache.TileID) (cache.Status, error) {
	buf, err := s.getObject(ctx, id)
	if isNotFound(err) {
		return cache.StatusMissing, nil
	}
	if err != nil {
		return cache.StatusMissing, err
	}
	status, _, err := cache.ValidateBytes(buf, id.Fingerprint)
	return status, err
}

func (s *Store) Delete(ctx context.Context, id cache.TileID) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return errors.Wrapf(err, "s3store: failed deleting tile %s", id.FileName())
	}
	return nil
}

func (s *Store) getObject(ctx context.Context, id cache.TileID) ([]byte, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "s3store: failed downloading tile %s", id.FileName())
	}
	return buf.Bytes(), nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var aerr awserr.Error
	if stderrors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
