package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// RequestID is either an integer or a string; both encode untagged. IDs
// of different kinds never compare equal, so 1 and "1" are distinct.
type RequestID struct {
	num   int64
	str   string
	isStr bool
}

// IntID returns an integer request id.
func IntID(n int64) RequestID { return RequestID{num: n} }

// StringID returns a string request id.
func StringID(s string) RequestID { return RequestID{str: s, isStr: true} }

// Int returns the integer value and whether the id is an integer.
func (id RequestID) Int() (int64, bool) { return id.num, !id.isStr }

func (id RequestID) String() string {
	if id.isStr {
		return strconv.Quote(id.str)
	}
	return strconv.FormatInt(id.num, 10)
}

func (id RequestID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return strconv.AppendInt(nil, id.num, 10), nil
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("jsonrpc: id must be an integer or string, got %s", data)
	}
	*id = IntID(n)
	return nil
}

// Kind classifies a message by the fields it carries.
type Kind uint8

const (
	KindRequest Kind = iota + 1
	KindResponse
	KindError
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	case KindNotification:
		return "notification"
	}
	return "invalid"
}

// ErrorData is the error object of an error response.
type ErrorData struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Message is any value on the wire: a request (from either side), a
// response, an error response, or a notification. There is no "jsonrpc"
// version field.
type Message struct {
	Kind   Kind
	ID     RequestID
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *ErrorData
}

// wireMessage mirrors the on-the-wire field set for classification.
type wireMessage struct {
	ID     *RequestID      `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorData      `json:"error,omitempty"`
}

var errUnclassified = errors.New("jsonrpc: message has no method, result or error")

// UnmarshalJSON classifies by field presence, in this order: id+method is a
// request, id+result a response, id+error an error, method alone a
// notification. Anything else is rejected.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.ID != nil && w.Method != "":
		*m = Message{Kind: KindRequest, ID: *w.ID, Method: w.Method, Params: w.Params}
	case w.ID != nil && w.Result != nil:
		*m = Message{Kind: KindResponse, ID: *w.ID, Result: w.Result}
	case w.ID != nil && w.Error != nil:
		*m = Message{Kind: KindError, ID: *w.ID, Error: w.Error}
	case w.ID == nil && w.Method != "":
		*m = Message{Kind: KindNotification, Method: w.Method, Params: w.Params}
	default:
		return errUnclassified
	}
	return nil
}

var jsonNull = json.RawMessage("null")

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{}
	switch m.Kind {
	case KindRequest:
		w.ID, w.Method, w.Params = &m.ID, m.Method, m.Params
	case KindNotification:
		w.Method, w.Params = m.Method, m.Params
	case KindResponse:
		w.ID, w.Result = &m.ID, m.Result
		if len(bytes.TrimSpace(w.Result)) == 0 {
			w.Result = jsonNull
		}
	case KindError:
		if m.Error == nil {
			return nil, errors.New("jsonrpc: error message without error data")
		}
		w.ID, w.Error = &m.ID, m.Error
	default:
		return nil, fmt.Errorf("jsonrpc: cannot encode message of kind %v", m.Kind)
	}
	return json.Marshal(w)
}

// NewRequest builds a request, encoding params when non-nil.
func NewRequest(id RequestID, method string, params any) (Message, error) {
	raw, err := encodeOptional(params)
	if err != nil {
		return Message{}, fmt.Errorf("jsonrpc: encode %s params: %w", method, err)
	}
	return Message{Kind: KindRequest, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification, encoding params when non-nil.
func NewNotification(method string, params any) (Message, error) {
	raw, err := encodeOptional(params)
	if err != nil {
		return Message{}, fmt.Errorf("jsonrpc: encode %s params: %w", method, err)
	}
	return Message{Kind: KindNotification, Method: method, Params: raw}, nil
}

func encodeOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
