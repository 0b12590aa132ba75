package content

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Type discriminates a Block.
type Type string

// Block types.
const (
	TypeText         Type = "text"
	TypeImage        Type = "image"
	TypeAudio        Type = "audio"
	TypeResource     Type = "resource"
	TypeResourceLink Type = "resource_link"
	TypeError        Type = "error"
)

// Block is one unit of a tool result payload.
type Block struct {
	Type     Type   `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`

	// URI and Name describe resource links.
	URI  string `json:"uri,omitempty"`
	Name string `json:"name,omitempty"`

	Resource *Resource `json:"resource,omitempty"`

	// ArtifactID, Key and URL are set once a binary block is persisted.
	ArtifactID string `json:"artifactId,omitempty"`
	Key        string `json:"key,omitempty"`
	URL        string `json:"url,omitempty"`

	// Error is the failure message of an error block.
	Error string `json:"error,omitempty"`
}

// Resource is an embedded resource.
type Resource struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     []byte `json:"blob,omitempty"`
}

// Binary reports whether b carries a payload that must be persisted.
func (b Block) Binary() bool {
	return (b.Type == TypeImage || b.Type == TypeAudio) && b.ArtifactID == ""
}

// Text returns a text block.
func Text(s string) Block {
	return Block{Type: TypeText, Text: s}
}

// ErrorBlock returns an inline error marker.
func ErrorBlock(msg string) Block {
	return Block{Type: TypeError, Error: msg}
}

// FromMCP converts MCP content into blocks. Content types this package does
// not know are dropped.
func FromMCP(in []mcp.Content) []Block {
	out := make([]Block, 0, len(in))
	for _, c := range in {
		switch v := c.(type) {
		case *mcp.TextContent:
			out = append(out, Text(v.Text))
		case *mcp.ImageContent:
			out = append(out, Block{Type: TypeImage, Data: v.Data, MIMEType: v.MIMEType})
		case *mcp.AudioContent:
			out = append(out, Block{Type: TypeAudio, Data: v.Data, MIMEType: v.MIMEType})
		case *mcp.ResourceLink:
			out = append(out, Block{Type: TypeResourceLink, URI: v.URI, Name: v.Name, MIMEType: v.MIMEType})
		case *mcp.EmbeddedResource:
			if v.Resource == nil {
				continue
			}
			out = append(out, Block{Type: TypeResource, Resource: &Resource{
				URI:      v.Resource.URI,
				MIMEType: v.Resource.MIMEType,
				Text:     v.Resource.Text,
				Blob:     v.Resource.Blob,
			}})
		}
	}
	return out
}
