package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const googleStorageHost = "https://storage.googleapis.com/"

// FirebaseStorage stores objects in a Firebase (Google Cloud Storage) bucket
// and makes them publicly readable.
type FirebaseStorage struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewFirebaseStorage accepts credentials either as inline JSON or as a path
// to a service account file. Empty credentials fall back to the default chain.
func NewFirebaseStorage(ctx context.Context, bucketName, credentials string) (*FirebaseStorage, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}

	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(strings.TrimSpace(credentials), "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, err
	}

	return &FirebaseStorage{bucket: bucket, bucketName: bucketName}, nil
}

func (f *FirebaseStorage) Upload(ctx context.Context, content io.Reader, filename, contentType string) (string, error) {
	key := objectKey(filename)
	obj := f.bucket.Object(key)

	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, content); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", fmt.Errorf("failed to make %s public: %w", key, err)
	}

	return googleStorageHost + f.bucketName + "/" + key, nil
}

func (f *FirebaseStorage) Delete(ctx context.Context, url string) error {
	bucket, key, err := ExtractObjectPath(url)
	if err != nil {
		return err
	}
	if bucket != f.bucketName {
		return ErrForeignURL
	}
	if err := f.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// ExtractObjectPath splits a storage.googleapis.com URL into bucket and object path.
func ExtractObjectPath(url string) (string, string, error) {
	if !strings.HasPrefix(url, googleStorageHost) {
		return "", "", ErrForeignURL
	}
	parts := strings.SplitN(strings.TrimPrefix(url, googleStorageHost), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid URL format")
	}
	return parts[0], parts[1], nil
}
