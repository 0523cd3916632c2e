package view

// Response is the envelope used by endpoints that return a payload.
type Response[T any] struct {
	OK      bool   `json:"ok"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Request any    `json:"request,omitempty"`
}

// CreateResponse builds the envelope. req is echoed back only alongside an error.
func CreateResponse[T any](data T, err error, req any, message string) Response[T] {
	resp := Response[T]{
		OK:      err == nil,
		Data:    data,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		resp.Request = req
	}
	return resp
}

type MessageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request: {ok:false, message}.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Error(message string) ErrorResponse {
	return ErrorResponse{OK: false, Message: message}
}

func Message(message string) MessageResponse {
	return MessageResponse{OK: true, Message: message}
}
