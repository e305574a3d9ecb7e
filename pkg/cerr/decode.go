package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxRequestBodyBytes caps every JSON request body.
const MaxRequestBodyBytes = 1 << 20

// DecodeJSONBody reads one JSON value from the request into v. Every
// failure is an InvalidArgument whose message tells the caller what was
// wrong with the body.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return NewError(InvalidArgument, "request body is required", err)
		case errors.As(err, &maxErr):
			return NewError(InvalidArgument, "request body too large", err)
		case errors.As(err, &typeErr):
			return NewError(InvalidArgument, fmt.Sprintf("field %q has the wrong type", typeErr.Field), err)
		default:
			return NewError(InvalidArgument, "malformed JSON body", err)
		}
	}
	return nil
}
