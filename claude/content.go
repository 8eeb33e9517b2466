package claude

import (
	"bytes"
	"encoding/json"
)

// ContentBlock is one element of a message's content array. Which fields
// are populated depends on Type.
type ContentBlock struct {
	Type ContentType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// plain marks a block decoded from a bare string body.
	plain bool
}

// ImageSource is inline image data.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// ImageBlock returns a base64 image content block.
func ImageBlock(mediaType, data string) ContentBlock {
	return ContentBlock{
		Type:   ContentImage,
		Source: &ImageSource{Type: "base64", MediaType: mediaType, Data: data},
	}
}

// ToolResultBlock returns a tool_result block answering toolUseID.
func ToolResultBlock(toolUseID, text string, isError bool) ContentBlock {
	content, _ := json.Marshal(text)
	return ContentBlock{
		Type:      ContentToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}

// Content is a message body. The CLI sends either a bare string or an
// array of blocks; a bare string decodes to a single text block and
// re-encodes as a string.
type Content []ContentBlock

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content{{Type: ContentText, Text: s, plain: true}}
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	*c = blocks
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	if len(c) == 1 && c[0].plain {
		return json.Marshal(c[0].Text)
	}
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ContentBlock(c))
}
