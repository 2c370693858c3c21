package minio

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EndpointSchemeDecidesTLS(t *testing.T) {
	s, err := New(Config{
		Endpoint:  "https://objects.roorq.in",
		AccessKey: "roorq",
		SecretKey: "roorq-secret-key",
		Region:    "ap-south-1",
		Bucket:    "vendor-documents",
	})
	require.NoError(t, err)
	assert.Equal(t, "objects.roorq.in", s.client.EndpointURL().Host)
	assert.Equal(t, "https", s.client.EndpointURL().Scheme)
}

func TestPresignGet_SignsLocally(t *testing.T) {
	s, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "roorq",
		SecretKey: "roorq-secret-key",
		Region:    "us-east-1",
		Bucket:    "vendor-documents",
	})
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "vendor-001/pan_card/doc-001.pdf", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.True(t, strings.HasSuffix(u.Path, "/vendor-documents/vendor-001/pan_card/doc-001.pdf"))
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
