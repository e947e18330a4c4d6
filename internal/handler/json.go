package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// maxBodySize bounds request bodies; every payload here is a small form.
const maxBodySize = 64 << 10

var errBadRequest = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// apiError is the {code, message} error body. Fields lists offending form
// fields for validation failures and Extra appends handler-specific members.
type apiError struct {
	Code    int
	Message string
	Missing []string
	Invalid []string
	Extra   func(e *jx.Encoder)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeAPIError(w, apiError{Code: code, Message: message})
}

func writeAPIError(w http.ResponseWriter, ae apiError) {
	writeJSON(w, ae.Code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(ae.Code)
		e.FieldStart("message")
		e.Str(ae.Message)
		if len(ae.Missing) > 0 || len(ae.Invalid) > 0 {
			e.FieldStart("fields")
			e.ObjStart()
			for _, f := range ae.Missing {
				e.FieldStart(f)
				e.Str("required")
			}
			for _, f := range ae.Invalid {
				e.FieldStart(f)
				e.Str("invalid")
			}
			e.ObjEnd()
		}
		if ae.Extra != nil {
			ae.Extra(e)
		}
		e.ObjEnd()
	})
}

// decodeObject reads a JSON object body, calling fn for each member.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	d := jx.Decode(body, 4096)
	if err := d.Obj(fn); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

// str decodes a string member, treating null as empty.
func str(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// integer decodes an integer member, treating null as zero.
func integer(d *jx.Decoder) (int, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int()
}

// money encodes an amount as a string with two decimal places.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}

func strField(e *jx.Encoder, name, value string) {
	e.FieldStart(name)
	e.Str(value)
}

func optStrField(e *jx.Encoder, name, value string) {
	if value != "" {
		strField(e, name, value)
	}
}

func strArray(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}
