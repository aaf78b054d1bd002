package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

var ErrNotArchived = errors.New("transcript not found")

type MinIOStore struct {
	client     *minio.Client
	bucketName string
	urlExpiry  time.Duration
}

func NewMinIOStore(client *minio.Client, bucketName string, urlExpiry time.Duration) *MinIOStore {
	if urlExpiry <= 0 {
		urlExpiry = time.Hour
	}
	return &MinIOStore{
		client:     client,
		bucketName: bucketName,
		urlExpiry:  urlExpiry,
	}
}

// Archive uploads a transcript and returns its object name. Archiving the
// same meeting again overwrites the previous copy.
func (m *MinIOStore) Archive(ctx context.Context, t Transcript) (string, error) {
	if t.Entries == nil {
		t.Entries = []Entry{}
	}

	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	objectName := ObjectName(t.MeetingID)

	_, err = m.client.PutObject(
		ctx,
		m.bucketName,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "application/json",
			UserMetadata: map[string]string{
				"meeting-id": t.MeetingID,
				"archived":   time.Now().Format(time.RFC3339),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}

	return objectName, nil
}

// PresignedURL returns a time-limited download link for a meeting's transcript
func (m *MinIOStore) PresignedURL(ctx context.Context, meetingID string) (string, error) {
	objectName := ObjectName(meetingID)

	if _, err := m.client.StatObject(ctx, m.bucketName, objectName, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrNotArchived
		}
		return "", fmt.Errorf("failed to get object info: %w", err)
	}

	url, err := m.client.PresignedGetObject(ctx, m.bucketName, objectName, m.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return url.String(), nil
}

// Delete removes an archived transcript
func (m *MinIOStore) Delete(ctx context.Context, meetingID string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, ObjectName(meetingID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
