package model

import "encoding/json"

// InvokeRequest is the body of POST /exec/{service}/{action}.
type InvokeRequest struct {
	Args []json.RawMessage `json:"args"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ResizeRequest struct {
	Data    string          `json:"data"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	Options json.RawMessage `json:"options,omitempty"`
}

type SizeRequest struct {
	Data    string          `json:"data"`
	Options json.RawMessage `json:"options,omitempty"`
}

type StoreRequest struct {
	Data    string          `json:"data"`
	Options json.RawMessage `json:"options,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
