package registry

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source_Fetch(t *testing.T) {
	api := &fakeS3{objects: map[string]string{
		"ui-bucket/public/r/index.json": `[{"name": "button", "type": "registry:ui"}]`,
	}}
	c := New(NewS3Source(api, "ui-bucket", "/public/r/"))

	index, err := c.FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("FetchIndex error: %v", err)
	}
	if len(index) != 1 || index[0].Name != "button" {
		t.Errorf("index = %+v", index)
	}
	if api.keys[0] != "ui-bucket/public/r/index.json" {
		t.Errorf("requested key = %q", api.keys[0])
	}

	if _, err := c.FetchItem(context.Background(), "default", "card"); err == nil {
		t.Error("expected error for a missing object")
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url        string
		wantBucket string
		wantPrefix string
		wantErr    bool
	}{
		{"s3://bucket/r", "bucket", "r", false},
		{"s3://bucket", "bucket", "", false},
		{"s3://bucket/a/b/", "bucket", "a/b", false},
		{"https://bucket/r", "", "", true},
		{"s3:///r", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			bucket, prefix, err := ParseS3URL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if bucket != tt.wantBucket || prefix != tt.wantPrefix {
				t.Errorf("ParseS3URL = %q, %q", bucket, prefix)
			}
		})
	}
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_ENDPOINT_URL_S3", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "")

	cfg := S3ConfigFromEnv()
	if cfg.Region != "us-east-1" {
		t.Errorf("Region = %q", cfg.Region)
	}

	client := NewS3Client(cfg)
	opts := client.Options()
	if !opts.UsePathStyle || aws.ToString(opts.BaseEndpoint) != "http://localhost:9000" {
		t.Errorf("options = %+v", opts)
	}
}
