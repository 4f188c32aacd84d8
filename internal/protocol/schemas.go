package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names.
const (
	SchemaPlan      = "plan.schema.json"
	SchemaHello     = "hello.schema.json"
	SchemaSay       = "say.schema.json"
	SchemaMove      = "move.schema.json"
	SchemaSubscribe = "subscribe.schema.json"
)

const schemaBaseURL = "https://dreamofone.ai/schemas/"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func loadSchemas() {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemaErr = err
		return
	}
	c := jsonschema.NewCompiler()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		b, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(schemaBaseURL+e.Name(), bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", e.Name(), err)
			return
		}
		names = append(names, e.Name())
	}
	out := make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			schemaErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		out[name] = s
	}
	schemas = out
}

// Schema returns a compiled embedded schema by file name.
func Schema(name string) (*jsonschema.Schema, error) {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate checks a decoded JSON document (as produced by json.Unmarshal into
// any) against the named schema.
func Validate(name string, doc any) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	return s.Validate(doc)
}

// DecodeValidated validates raw against the named schema before decoding it
// into out. Failures carry ErrProtoBadRequest.
func DecodeValidated(name string, raw []byte, out any) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return NewError(ErrProtoBadRequest, "malformed json", err)
	}
	if err := Validate(name, doc); err != nil {
		return NewError(ErrProtoBadRequest, name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(ErrProtoBadRequest, name, err)
	}
	return nil
}
