package s3

import (
	"errors"
	"fmt"
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/task/1.png", want: "user/task/1.png"},
		{name: "simple prefix", prefix: "root", key: "user/task/1.png", want: "root/user/task/1.png"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/task/1.png", want: "root/user/task/1.png"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/task/1.png", want: "root/user/task/1.png"},
		{name: "nested prefix", prefix: "root/sub", key: "user/task/1.png", want: "root/sub/user/task/1.png"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	if got := publicURL("", "analysis-images", "eu-west-1", "u/t/1 a.png"); got != "https://analysis-images.s3.eu-west-1.amazonaws.com/u/t/1%20a.png" {
		t.Fatalf("unexpected virtual-hosted url %q", got)
	}
	if got := publicURL("https://cdn.test", "analysis-images", "eu-west-1", "u/t/1.png"); got != "https://cdn.test/u/t/1.png" {
		t.Fatalf("unexpected cdn url %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	if !isNotFound(fmt.Errorf("wrap: %w", &s3types.NotFound{})) {
		t.Fatalf("expected typed NotFound to match")
	}
	if !isNotFound(&smithy.GenericAPIError{Code: "NoSuchBucket"}) {
		t.Fatalf("expected NoSuchBucket code to match")
	}
	if isNotFound(errors.New("timeout")) {
		t.Fatalf("expected plain error not to match")
	}
}
