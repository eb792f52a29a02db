// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema describes configuration structs from their yaml and docdesc tags.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
)

// JSONSchemaDraft is the meta schema of generated JSON schemas.
const JSONSchemaDraft = "https://json-schema.org/draft/2020-12/schema"

// ErrNotStruct is returned when the described value is not a struct.
var ErrNotStruct = errors.New("expected struct type")

// Field represents a field in a schema.
type Field struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Properties  []Field // For nested structs, in declaration order
}

// Generator describes a configuration struct.
type Generator struct {
	title       string
	description string
	fields      []Field
}

// NewGenerator reads the fields of v, which must be a struct or a pointer to one.
func NewGenerator(title, description string, v any) (*Generator, error) {
	fields, err := extractFields(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}

	return &Generator{title: title, description: description, fields: fields}, nil
}

// Fields returns the top level fields in declaration order.
func (g *Generator) Fields() []Field {
	return g.fields
}

// extractFields extracts schema fields from a struct type using reflection.
func extractFields(t reflect.Type) ([]Field, error) {
	if t == nil {
		return nil, ErrNotStruct
	}

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %s", ErrNotStruct, t.Kind())
	}

	var fields []Field

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		if sf.Anonymous {
			embedded, err := extractFields(sf.Type)
			if err != nil {
				return nil, err
			}

			fields = append(fields, embedded...)

			continue
		}

		f, ok, err := toField(sf)
		if err != nil {
			return nil, err
		}

		if ok {
			fields = append(fields, f)
		}
	}

	return fields, nil
}

func toField(sf reflect.StructField) (Field, bool, error) {
	tag := sf.Tag.Get("yaml")
	if tag == "-" {
		return Field{}, false, nil
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(sf.Name)
	}

	f := Field{
		Name:        name,
		Type:        schemaType(sf.Type),
		Description: sf.Tag.Get("docdesc"),
		Required:    !strings.Contains(opts, "omitempty"),
	}

	if enum := sf.Tag.Get("docenum"); enum != "" {
		f.Enum = strings.Split(enum, ",")
	}

	t := sf.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() == reflect.Struct {
		props, err := extractFields(t)
		if err != nil {
			return Field{}, false, err
		}

		f.Properties = props
	}

	return f, true, nil
}

// schemaType converts a Go type to a JSON schema type.
func schemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return schemaType(t.Elem())
	default:
		return "string"
	}
}

// JSONSchema returns the JSON schema document.
func (g *Generator) JSONSchema() map[string]any {
	root := objectSchema(g.fields)
	root["$schema"] = JSONSchemaDraft
	root["title"] = g.title

	if g.description != "" {
		root["description"] = g.description
	}

	return root
}

func objectSchema(fields []Field) map[string]any {
	properties := make(map[string]any, len(fields))
	required := []string{}

	for _, f := range fields {
		properties[f.Name] = property(f)

		if f.Required {
			required = append(required, f.Name)
		}
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func property(f Field) map[string]any {
	prop := map[string]any{"type": f.Type}

	if len(f.Properties) > 0 {
		prop = objectSchema(f.Properties)
	}

	if f.Description != "" {
		prop["description"] = f.Description
	}

	if len(f.Enum) > 0 {
		prop["enum"] = f.Enum
	}

	return prop
}

// WriteJSONSchema writes the indented JSON schema.
func (g *Generator) WriteJSONSchema(w io.Writer) error {
	b, err := json.MarshalIndent(g.JSONSchema(), "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", b)

	return err
}

// WriteYAMLExample writes example as YAML, preceded by the title as a comment.
func (g *Generator) WriteYAMLExample(w io.Writer, example any) error {
	b, err := yaml.Marshal(example)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "# %s\n%s", g.title, b)

	return err
}

// WriteMarkdown writes a field reference table. Nested fields are named with dots.
func (g *Generator) WriteMarkdown(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", g.title)

	if g.description != "" {
		fmt.Fprintf(&b, "%s\n\n", g.description)
	}

	b.WriteString("| Field | Type | Required | Description |\n")
	b.WriteString("|-------|------|----------|-------------|\n")

	writeRows(&b, "", g.fields)

	_, err := io.WriteString(w, b.String())

	return err
}

func writeRows(b *strings.Builder, prefix string, fields []Field) {
	for _, f := range fields {
		required := "No"
		if f.Required {
			required = "Yes"
		}

		desc := f.Description
		if len(f.Enum) > 0 {
			desc = fmt.Sprintf("%s, one of `%s`", desc, strings.Join(f.Enum, "`, `"))
		}

		fmt.Fprintf(b, "| `%s%s` | %s | %s | %s |\n", prefix, f.Name, f.Type, required, desc)

		if len(f.Properties) > 0 {
			writeRows(b, prefix+f.Name+".", f.Properties)
		}
	}
}
