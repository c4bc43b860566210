package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

type Action struct {
	s string
}

var (
	ActionResizeImage = Action{"resizeImage"}
	ActionImageSize   = Action{"imageSize"}
	ActionStoreImage  = Action{"storeImage"}
)

func (a Action) String() string {
	return a.s
}

func MakeActionFromString(s string) (Action, error) {
	switch s {
	case ActionResizeImage.s:
		return ActionResizeImage, nil
	case ActionImageSize.s:
		return ActionImageSize, nil
	case ActionStoreImage.s:
		return ActionStoreImage, nil
	}

	return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, s)
}

// Response is the JSON-like object an executor hands back on success.
type Response map[string]any

// Invoker carries one call across the executor boundary. args always holds
// exactly one request record.
type Invoker interface {
	Invoke(ctx context.Context, service string, action Action, args []any) (Response, error)
}

// Backend is the executor behind a Dispatcher.
type Backend interface {
	Resize(ctx context.Context, req ResizeRequest) (*ResizeResult, error)
	Measure(ctx context.Context, req SizeRequest) (*SizeResult, error)
	Store(ctx context.Context, req StoreRequest) (*StoreResult, error)
}

// ResizeResult holds the resized image as base64 in ImageData, or the stored
// file location in FilePath when the request asked for storage.
type ResizeResult struct {
	ImageData string `json:"imageData,omitempty"`
	FilePath  string `json:"filePath,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type SizeResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type StoreResult struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ExecutorFailure is an error reported by the executor side, carried as the
// plain message it was produced with.
type ExecutorFailure struct {
	Message string
}

func (e *ExecutorFailure) Error() string {
	return e.Message
}

func DecodeResize(resp Response) (*ResizeResult, error) {
	return decodeResponse[ResizeResult](resp)
}

func DecodeSize(resp Response) (*SizeResult, error) {
	return decodeResponse[SizeResult](resp)
}

func DecodeStore(resp Response) (*StoreResult, error) {
	return decodeResponse[StoreResult](resp)
}

func decodeResponse[T any](resp Response) (*T, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &out, nil
}

func toResponse(v any) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	resp := Response{}
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return resp, nil
}
