package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/udisondev/dressroom/internal/game/appearance"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://dressroom.invalid/schemas/"

// ErrBadRequest — входящее сообщение не прошло схему или не разбирается.
var ErrBadRequest = errors.New("bad request")

// Intake проверяет входящие сообщения клиента. Схемы компилируются один раз;
// Intake безопасен для конкурентного использования.
type Intake struct {
	envelope   *jsonschema.Schema
	hello      *jsonschema.Schema
	action     *jsonschema.Schema
	permission *jsonschema.Schema
	safemode   *jsonschema.Schema
}

// NewIntake компилирует встроенные схемы.
func NewIntake() (*Intake, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	names, err := fs.Glob(schemaFS, "schemas/*.schema.json")
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	for _, name := range names {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		if err := c.AddResource(schemaBaseURL+path.Base(name), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
	}

	in := &Intake{}
	for _, s := range []struct {
		name string
		dst  **jsonschema.Schema
	}{
		{"envelope.schema.json", &in.envelope},
		{"hello.schema.json", &in.hello},
		{"action.schema.json", &in.action},
		{"permission.schema.json", &in.permission},
		{"safemode.schema.json", &in.safemode},
	} {
		compiled, err := c.Compile(schemaBaseURL + s.name)
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", s.name, err)
		}
		*s.dst = compiled
	}
	return in, nil
}

func validate(schema *jsonschema.Schema, what string, raw []byte) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty %s", ErrBadRequest, what)
	}
	// jsonschema/v5 ждёт документ из encoding/json с числами как json.Number.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s is not JSON: %v", ErrBadRequest, what, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: %s has trailing data", ErrBadRequest, what)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadRequest, what, err)
	}
	return nil
}

// Envelope проверяет и разбирает конверт клиентского сообщения.
func (in *Intake) Envelope(raw []byte) (Envelope, error) {
	if err := validate(in.envelope, "envelope", raw); err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %v", ErrBadRequest, err)
	}
	return env, nil
}

func decode[T any](schema *jsonschema.Schema, what string, payload json.RawMessage) (T, error) {
	var v T
	if err := validate(schema, what, payload); err != nil {
		return v, err
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrBadRequest, what, err)
	}
	return v, nil
}

// Hello проверяет и разбирает payload hello.
func (in *Intake) Hello(payload json.RawMessage) (Hello, error) {
	return decode[Hello](in.hello, "hello", payload)
}

// Permission проверяет и разбирает payload permission.
func (in *Intake) Permission(payload json.RawMessage) (Permission, error) {
	return decode[Permission](in.permission, "permission", payload)
}

// Safemode проверяет и разбирает payload safemode.
func (in *Intake) Safemode(payload json.RawMessage) (Safemode, error) {
	return decode[Safemode](in.safemode, "safemode", payload)
}

// Action проверяет payload action/query и разбирает действие.
func (in *Intake) Action(payload json.RawMessage) (appearance.Action, error) {
	if err := validate(in.action, "action", payload); err != nil {
		return nil, err
	}
	a, err := appearance.DecodeAction(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return a, nil
}
