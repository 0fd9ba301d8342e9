package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rjsadow/aurora/internal/domain"
)

// mockS3Client implements s3API for testing.
type mockS3Client struct {
	objects map[string][]byte
	putErr  error
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestArchiver_Archive(t *testing.T) {
	mock := newMockS3Client()
	archiver := NewArchiverWithClient(mock, "test-bucket", "call-history/")

	endedAt := time.Now()
	record := &domain.CallHistory{
		ID:            "call-123",
		SpaceID:       "space-1",
		ChannelID:     "chan-1",
		JoinedMembers: []string{"user-1", "user-2"},
		EndedAt:       &endedAt,
	}

	if err := archiver.Archive(context.Background(), record); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	now := time.Now()
	wantKey := fmt.Sprintf("call-history/%d/%02d/call-123.json", now.Year(), now.Month())
	data, ok := mock.objects[wantKey]
	if !ok {
		t.Fatalf("expected object at key %q, objects = %v", wantKey, mock.objects)
	}

	var decoded domain.CallHistory
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal archived record: %v", err)
	}
	if decoded.ID != record.ID {
		t.Errorf("decoded ID = %q, want %q", decoded.ID, record.ID)
	}
	if len(decoded.JoinedMembers) != 2 {
		t.Errorf("decoded JoinedMembers = %v, want 2 entries", decoded.JoinedMembers)
	}
}

func TestArchiver_ArchiveError(t *testing.T) {
	mock := newMockS3Client()
	mock.putErr = fmt.Errorf("access denied")
	archiver := NewArchiverWithClient(mock, "test-bucket", "call-history/")

	err := archiver.Archive(context.Background(), &domain.CallHistory{ID: "call-fail"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "access denied") {
		t.Errorf("unexpected error: %v", err)
	}
}
