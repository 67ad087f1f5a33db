package metadata

import (
	"bytes"
	"encoding/json"
	"errors"

	prt "github.com/abcfe/abcfe-metadata/protocol"
)

// ValidJSON is a compacted, well-formed JSON object
type ValidJSON []byte

func (v ValidJSON) String() string {
	return string(v)
}

// ValidateJSON accepts non-empty JSON whose top-level value is an object
func ValidateJSON(doc string) (ValidJSON, error) {
	valid, err := validateBytes([]byte(doc))
	if err != nil {
		return nil, newError(KindValidation, "validate", 0, err)
	}
	return valid, nil
}

// MarshalDocument validates the JSON encoding of v
func MarshalDocument(v interface{}) (ValidJSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, newError(KindValidation, "validate", 0, err)
	}
	return ValidateJSON(string(data))
}

func validateBytes(doc []byte) (ValidJSON, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if !json.Valid(trimmed) {
		return nil, errors.New("malformed json")
	}
	if trimmed[0] != '{' {
		return nil, errors.New("top-level value must be an object")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return ValidJSON(buf.Bytes()), nil
}

func validationError(t prt.EntryType, err error) error {
	var e *Error
	if errors.As(err, &e) {
		e.Type = t
		return e
	}
	return newError(KindValidation, "validate", t, err)
}
