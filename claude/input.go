package claude

import (
	"fmt"
	"slices"
)

// Input is one user turn sent to the CLI.
type Input struct {
	Content Content

	// SessionID tags the message. Empty selects the captured session id,
	// or a fresh UUID before one is known.
	SessionID string

	// ParentToolUseID attributes the message to a running subagent.
	ParentToolUseID string
}

// TextInput is a plain text turn.
func TextInput(text string) Input {
	return Input{Content: Content{TextBlock(text)}}
}

var imageMediaTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ImageInput is a turn carrying one base64 image and optional text.
func ImageInput(mediaType, data, text string) (Input, error) {
	if !slices.Contains(imageMediaTypes, mediaType) {
		return Input{}, fmt.Errorf("claude: unsupported image media type %q", mediaType)
	}
	in := Input{Content: Content{ImageBlock(mediaType, data)}}
	if text != "" {
		in.Content = append(in.Content, TextBlock(text))
	}
	return in, nil
}

func (in Input) message(sessionID string) Output {
	return Output{
		Type: TypeUser,
		User: &UserMessage{
			Message:         MessageContent{Role: RoleUser, Content: in.Content},
			SessionID:       sessionID,
			ParentToolUseID: in.ParentToolUseID,
		},
	}
}
