package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// objectStore is the subset of the S3 API used for artifacts.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// artifactStore mirrors the classifier artifact and run outputs to a bucket.
type artifactStore struct {
	client objectStore
	bucket string
	prefix string
	logger *zap.Logger
}

func initS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		// For MinIO/testing
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, opts...), nil
}

func newArtifactStore(client objectStore, cfg S3Config, logger *zap.Logger) *artifactStore {
	return &artifactStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With(zap.String("component", "artifacts")),
	}
}

func (a *artifactStore) key(parts ...string) string {
	if a.prefix == "" {
		return path.Join(parts...)
	}
	return path.Join(append([]string{a.prefix}, parts...)...)
}

func (a *artifactStore) modelKey(modelPath string) string {
	return a.key("models", filepath.Base(modelPath))
}

// fetchModel downloads the model artifact to modelPath. It reports false when
// the bucket holds no model.
func (a *artifactStore) fetchModel(ctx context.Context, modelPath string) (bool, error) {
	key := a.modelKey(modelPath)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return false, nil
		}
		return false, fmt.Errorf("failed to download s3://%s/%s: %w", a.bucket, key, err)
	}
	defer out.Body.Close()

	if err := writeAtomic(modelPath, func(w io.Writer) error {
		_, err := io.Copy(w, out.Body)
		return err
	}); err != nil {
		return false, err
	}

	a.logger.Info("Downloaded model artifact", zap.String("bucket", a.bucket), zap.String("key", key))
	return true, nil
}

// uploadModel stores the model artifact at modelPath in the bucket.
func (a *artifactStore) uploadModel(ctx context.Context, modelPath string) error {
	key := a.modelKey(modelPath)
	if err := a.putFile(ctx, modelPath, key, "application/octet-stream", map[string]string{
		"schema":     modelSchema,
		"trained-at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}

	a.logger.Info("Uploaded model artifact", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}

// uploadOutputs stores the run's output workbooks under runs/<runID>/ and
// returns the uploaded keys.
func (a *artifactStore) uploadOutputs(ctx context.Context, runID string, groups []OutputGroup, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))

	for i, p := range paths {
		key := a.key("runs", runID, filepath.Base(p))
		meta := map[string]string{
			"source": "tpdm-automation",
			"run-id": runID,
		}
		if i < len(groups) {
			meta["label"] = string(groups[i].Label)
			meta["rows"] = strconv.Itoa(len(groups[i].Rows))
		}

		if err := a.putFile(ctx, p, key, xlsxContentType, meta); err != nil {
			return keys, err
		}

		a.logger.Info("Uploaded output workbook",
			zap.String("bucket", a.bucket),
			zap.String("key", key),
		)
		keys = append(keys, key)
	}

	return keys, nil
}

func (a *artifactStore) putFile(ctx context.Context, localPath, key, contentType string, meta map[string]string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", filepath.Base(localPath), err)
	}
	return nil
}
