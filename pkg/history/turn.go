// Package history keeps the ordered conversation turn log: in-memory while a
// chat is running, serialized to the key/value store after every completed
// exchange, and restorable on startup.
package history

import (
	"encoding/json"
	"fmt"
)

// Role attributes a turn to one side of the conversation.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// PartKind discriminates the content part union.
type PartKind int

const (
	// PartText is a plain text fragment.
	PartText PartKind = iota
	// PartInlineData is an attachment carried inline as base64.
	PartInlineData
	// PartFileRef is a persisted reference to an already-hosted file,
	// used when re-displaying history after reload. It is never forwarded
	// to the provider.
	PartFileRef
)

// Part is one content part of a turn. Exactly one variant is populated,
// selected by Kind.
type Part struct {
	Kind PartKind

	// PartText
	Text string

	// PartInlineData and PartFileRef
	MimeType string

	// PartInlineData: base64 payload
	Data string

	// PartFileRef
	URL string
}

// TextPart builds a plain text part.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// InlineDataPart builds an inline attachment part.
func InlineDataPart(mimeType, base64Data string) Part {
	return Part{Kind: PartInlineData, MimeType: mimeType, Data: base64Data}
}

// FileRefPart builds a hosted-file reference part.
func FileRefPart(url, mimeType string) Part {
	return Part{Kind: PartFileRef, URL: url, MimeType: mimeType}
}

// Turn is one message in the conversation.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Wire format. Matches what the provider accepts and what earlier versions
// of the app persisted: {"text": ...}, {"inline_data": {"mimeType", "data"}}
// or {"url", "mime_type"}.
type partJSON struct {
	Text       string          `json:"text,omitempty"`
	InlineData *inlineDataJSON `json:"inline_data,omitempty"`
	URL        string          `json:"url,omitempty"`
	MimeType   string          `json:"mime_type,omitempty"`
	// Some stored histories used camelCase for the file reference variant.
	MimeTypeAlt string `json:"mimeType,omitempty"`
}

type inlineDataJSON struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// MarshalJSON encodes the populated variant only.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PartText:
		return json.Marshal(partJSON{Text: p.Text})
	case PartInlineData:
		return json.Marshal(partJSON{InlineData: &inlineDataJSON{MimeType: p.MimeType, Data: p.Data}})
	case PartFileRef:
		return json.Marshal(partJSON{URL: p.URL, MimeType: p.MimeType})
	default:
		return nil, fmt.Errorf("history: unknown part kind %d", p.Kind)
	}
}

// UnmarshalJSON decodes by explicit variant detection rather than ad hoc
// field probing: inline_data wins, then url, then text.
func (p *Part) UnmarshalJSON(data []byte) error {
	var raw partJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case raw.InlineData != nil:
		*p = InlineDataPart(raw.InlineData.MimeType, raw.InlineData.Data)
	case raw.URL != "":
		mime := raw.MimeType
		if mime == "" {
			mime = raw.MimeTypeAlt
		}
		*p = FileRefPart(raw.URL, mime)
	default:
		*p = TextPart(raw.Text)
	}
	return nil
}
