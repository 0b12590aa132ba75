package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolcall/content"
	"github.com/jonwraymond/toolcall/storage/memory"
)

func fixedNormalizer(store content.Storage) *content.Normalizer {
	return &content.Normalizer{
		Storage: store,
		Now:     func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) },
		NewID:   func() string { return "id" },
	}
}

func TestNormalize_PartialFailureIsolated(t *testing.T) {
	store := memory.New()
	store.FailPut = func(_, mimeType string) error {
		if mimeType == "image/jpeg" {
			return errors.New("quota exceeded")
		}
		return nil
	}

	in := []content.Block{
		{Type: content.TypeImage, Data: []byte("a"), MIMEType: "image/png"},
		{Type: content.TypeImage, Data: []byte("b"), MIMEType: "image/jpeg"},
		content.Text("caption"),
	}
	out := fixedNormalizer(store).Normalize(context.Background(), in)

	require.Len(t, out, 3)
	assert.Equal(t, content.TypeImage, out[0].Type)
	assert.NotEmpty(t, out[0].ArtifactID)
	assert.Nil(t, out[0].Data)

	assert.Equal(t, content.TypeError, out[1].Type)
	assert.Contains(t, out[1].Error, "quota exceeded")

	assert.Equal(t, content.Text("caption"), out[2])
	assert.Equal(t, 1, store.Len())

	// the input is not modified
	assert.Equal(t, []byte("a"), in[0].Data)
}

func TestNormalize_Keys(t *testing.T) {
	out := fixedNormalizer(memory.New()).Normalize(context.Background(), []content.Block{
		{Type: content.TypeImage, Data: []byte("i"), MIMEType: "image/webp"},
		{Type: content.TypeAudio, Data: []byte("a"), MIMEType: "audio/wav"},
		{Type: content.TypeAudio, Data: []byte("a")},
	})

	assert.Equal(t, "files/mcp/images/2026-03-04/id.webp", out[0].Key)
	assert.Equal(t, "files/mcp/audio/2026-03-04/id.wav", out[1].Key)
	assert.Equal(t, "files/mcp/audio/2026-03-04/id.mp3", out[2].Key)
	assert.Equal(t, out[0].Key, out[0].URL)
	assert.Len(t, content.Artifacts(out), 3)
}

func TestNormalize_URLFor(t *testing.T) {
	n := fixedNormalizer(memory.New())
	n.URLFor = func(a content.Artifact) string { return "/v1/artifacts/" + a.ID }

	out := n.Normalize(context.Background(), []content.Block{
		{Type: content.TypeImage, Data: []byte("i"), MIMEType: "image/png"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "/v1/artifacts/"+out[0].ArtifactID, out[0].URL)
	assert.Equal(t, "files/mcp/images/2026-03-04/id.png", out[0].Key)

	n.URLFor = nil
	out = n.Normalize(context.Background(), []content.Block{
		{Type: content.TypeImage, Data: []byte("i"), MIMEType: "image/png"},
	})
	assert.Equal(t, out[0].Key, out[0].URL)
}

func TestNormalize_NoStorage(t *testing.T) {
	out := (&content.Normalizer{}).Normalize(context.Background(), []content.Block{
		content.Text("ok"),
		{Type: content.TypeImage, Data: []byte("x")},
	})
	require.Len(t, out, 2)
	assert.Equal(t, content.TypeText, out[0].Type)
	assert.Equal(t, content.TypeError, out[1].Type)
}

func TestNormalize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := fixedNormalizer(memory.New()).Normalize(ctx, []content.Block{
		{Type: content.TypeImage, Data: []byte("x")},
	})
	require.Len(t, out, 1)
	assert.Equal(t, content.TypeError, out[0].Type)
}

func TestArtifactKey_MimeParameters(t *testing.T) {
	at := time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "p/mcp/images/2026-01-02/x.png", content.ArtifactKey("p", content.TypeImage, "", at, "x"))
	assert.Equal(t, "p/mcp/audio/2026-01-02/x.mpeg", content.ArtifactKey("p", content.TypeAudio, "audio/mpeg; rate=44100", at, "x"))
}

func TestFromMCP(t *testing.T) {
	blocks := content.FromMCP([]mcp.Content{
		&mcp.TextContent{Text: "hello"},
		&mcp.ImageContent{Data: []byte{1}, MIMEType: "image/png"},
		&mcp.AudioContent{Data: []byte{2}, MIMEType: "audio/wav"},
		&mcp.ResourceLink{URI: "file:///a.txt", Name: "a.txt"},
		&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{URI: "mem://x", Text: "body"}},
		&mcp.EmbeddedResource{},
	})

	require.Len(t, blocks, 5)
	assert.Equal(t, content.Text("hello"), blocks[0])
	assert.Equal(t, content.TypeImage, blocks[1].Type)
	assert.Equal(t, content.TypeAudio, blocks[2].Type)
	assert.Equal(t, "a.txt", blocks[3].Name)
	assert.Equal(t, "body", blocks[4].Resource.Text)
}
