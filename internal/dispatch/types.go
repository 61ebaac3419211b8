package dispatch

import "encoding/json"

// Request is one tool invocation. ID is chosen by the caller and echoed back.
type Request struct {
	ID        any             `json:"id,omitempty"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response answers exactly one Request. Either Result or Error is set.
type Response struct {
	ID     any    `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// OK reports whether the request succeeded.
func (r Response) OK() bool {
	return r.Error == nil
}

// MarshalJSON always writes "result" for a success, even when it is empty or
// null, and never writes it next to "error".
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			ID    any    `json:"id"`
			Error *Error `json:"error"`
		}{r.ID, r.Error})
	}
	return json.Marshal(struct {
		ID     any `json:"id"`
		Result any `json:"result"`
	}{r.ID, r.Result})
}

func failure(id any, err *Error) Response {
	return Response{ID: id, Error: err}
}
