package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire tags
const (
	actionDownloadFileStream = "downloadFileStream"

	typeChunk    = "chunk"
	typeComplete = "complete"
	typeError    = "error"
)

// ErrUnknownMessage is returned by Decode for frames of no known kind
var ErrUnknownMessage = errors.New("unknown channel message")

// Message is one frame on the channel. The concrete type is one of
// StreamRequest, Chunk, Complete or Failure.
type Message interface {
	ID() string
	isMessage()
}

// StreamRequest starts a streamed download (requester to fetcher)
type StreamRequest struct {
	URL       string
	RequestID string
}

// Chunk carries the next slice of the response body
type Chunk struct {
	RequestID string
	Data      []byte
}

// Complete signals the end of the body
type Complete struct {
	RequestID   string
	ContentType string
}

// Failure terminates the transfer with an error
type Failure struct {
	RequestID string
	Error     string
}

func (m StreamRequest) ID() string { return m.RequestID }
func (m Chunk) ID() string         { return m.RequestID }
func (m Complete) ID() string      { return m.RequestID }
func (m Failure) ID() string       { return m.RequestID }

func (StreamRequest) isMessage() {}
func (Chunk) isMessage()         {}
func (Complete) isMessage()      {}
func (Failure) isMessage()       {}

type streamRequestFrame struct {
	Action    string `json:"action"`
	URL       string `json:"url"`
	RequestID string `json:"requestId"`
}

type chunkFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Chunk     []byte `json:"chunk"`
	Done      bool   `json:"done"`
}

type completeFrame struct {
	Type        string `json:"type"`
	RequestID   string `json:"requestId"`
	ContentType string `json:"contentType"`
}

type errorFrame struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

// inboundFrame is the union of all frame fields, used for decoding only
type inboundFrame struct {
	Action      string `json:"action"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	RequestID   string `json:"requestId"`
	Chunk       []byte `json:"chunk"`
	ContentType string `json:"contentType"`
	Error       string `json:"error"`
}

// Encode serializes a message to its JSON wire form
func Encode(msg Message) ([]byte, error) {
	var frame any
	switch m := msg.(type) {
	case StreamRequest:
		frame = streamRequestFrame{Action: actionDownloadFileStream, URL: m.URL, RequestID: m.RequestID}
	case Chunk:
		frame = chunkFrame{Type: typeChunk, RequestID: m.RequestID, Chunk: m.Data, Done: false}
	case Complete:
		frame = completeFrame{Type: typeComplete, RequestID: m.RequestID, ContentType: m.ContentType}
	case Failure:
		frame = errorFrame{Type: typeError, RequestID: m.RequestID, Error: m.Error}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}
	return json.Marshal(frame)
}

// Decode parses a JSON wire frame into its message variant
func Decode(data []byte) (Message, error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode channel frame: %w", err)
	}

	if f.Action == actionDownloadFileStream {
		return StreamRequest{URL: f.URL, RequestID: f.RequestID}, nil
	}

	switch f.Type {
	case typeChunk:
		return Chunk{RequestID: f.RequestID, Data: f.Chunk}, nil
	case typeComplete:
		return Complete{RequestID: f.RequestID, ContentType: f.ContentType}, nil
	case typeError:
		return Failure{RequestID: f.RequestID, Error: f.Error}, nil
	default:
		return nil, fmt.Errorf("%w: action=%q type=%q", ErrUnknownMessage, f.Action, f.Type)
	}
}
