package schemas

import "strings"

// Role tags the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Blob is inline binary data attached to a turn (audio, images).
type Blob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Part is one piece of a turn. Exactly one of Text or InlineData is set.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inline_data,omitempty"`
}

// Content is a single conversation turn.
type Content struct {
	Role  Role   `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// NewTextContent builds a turn holding a single text part.
func NewTextContent(role Role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

// NewContent builds a turn from text followed by any number of blobs.
func NewContent(role Role, text string, blobs ...Blob) Content {
	c := Content{Role: role}
	if text != "" {
		c.Parts = append(c.Parts, Part{Text: text})
	}
	for i := range blobs {
		b := blobs[i]
		c.Parts = append(c.Parts, Part{InlineData: &b})
	}
	return c
}

// Text joins every non-empty text part, one per line.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Schema is the subset of OpenAPI schema accepted for JSON-mode responses.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}
