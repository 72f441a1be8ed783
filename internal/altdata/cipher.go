// Package altdata serves the mock encrypted alternative-data sources
// (telecom, utility, banking, geospatial, community reference) and the
// deterministic feature extractors that turn them into an IntegratedProfile.
package altdata

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

const shift = 5

var ErrInvalidTarget = errors.New("decrypt target must be a non-nil pointer")

// caesar rotates ASCII letters by n, leaving every other byte untouched.
func caesar(b []byte, n int) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = byte((int(c-'A')+n%26+26)%26) + 'A'
		case c >= 'a' && c <= 'z':
			out[i] = byte((int(c-'a')+n%26+26)%26) + 'a'
		default:
			out[i] = c
		}
	}
	return out
}

// Encrypt serialises v to JSON, shifts the letters and base64-encodes the
// result.
func Encrypt(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(caesar(raw, shift)), nil
}

func mustEncrypt(v interface{}) string {
	s, err := Encrypt(v)
	if err != nil {
		panic(err)
	}
	return s
}

// Decrypt reverses Encrypt into v. On any failure v is left as it was.
func Decrypt(s string, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrInvalidTarget
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(caesar(raw, -shift), tmp.Interface()); err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}
