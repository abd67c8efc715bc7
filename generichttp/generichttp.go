// Package generichttp defines interfaces for generic devices and the
// plumbing to wrap them in an HTTP interface: typed JSON payloads and a
// route table bound onto a chi router.
package generichttp

import (
	"encoding/json"
	"fmt"
	"go/types"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
)

// FloatT is a struct with a single float64 field, used for json (un)marshaling
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, used for json (un)marshaling
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field, used for json (un)marshaling
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field, used for json (un)marshaling
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the basic types and a type field
// indicating which of them is populated, so a response can be encoded
// without reflection.
type HumanPayload struct {
	// T holds the type of data actually contained in the payload
	T types.BasicKind

	// Float holds a float64
	Float float64

	// Int holds an int
	Int int

	// Bool holds a bool
	Bool bool

	// String holds a string
	String string
}

// EncodeAndRespond writes the payload to w as JSON with the appropriate
// single-field wrapper
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		err = fmt.Errorf("unknown payload kind %v", hp.T)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MethodPath is a method-qualified route, e.g. {GET, /pos}
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps method-qualified routes to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints lists the routes in the table as "METHOD /path" strings
func (rt RouteTable) Endpoints() []string {
	out := make([]string, 0, len(rt))
	for mp := range rt {
		out = append(out, mp.Method+" "+mp.Path)
	}
	return out
}

// Bind attaches every route in the table to a chi router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, handler := range rt {
		r.Method(mp.Method, mp.Path, handler)
	}
}

// HTTPer is an object that can yield its route table
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize ensures a mount point begins with a slash and ends with
// a wildcard, the format chi expects for a submux
func SubMuxSanitize(str string) string {
	if !strings.HasPrefix(str, "/") {
		str = "/" + str
	}
	if !strings.HasSuffix(str, "/*") {
		if strings.HasSuffix(str, "/") {
			str = str + "*"
		} else {
			str = str + "/*"
		}
	}
	return str
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}
