package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/language"
)

// piiAttribute is the CUE attribute name that declares a field's
// category: @pii(email) or @pii(full_name, locale=en-US).
const piiAttribute = "pii"

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles CUE source into a Schema. The source may
// declare records under a top-level `schema` struct or at the root.
func CompileString(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v)
}

// Compile parses a CUE value into a Schema. Uses the CUE SDK's Go API
// directly (not CLI subprocess).
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if sv := v.LookupPath(cue.ParsePath("schema")); sv.Exists() {
		v = sv
	}

	s := &Schema{records: make(map[string][]FieldDescriptor)}

	// First pass: collect record names so forward references resolve.
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	type pending struct {
		name string
		val  cue.Value
	}
	var records []pending
	for iter.Next() {
		name := iter.Selector().Unquoted()
		if iter.Value().IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   name,
				Message: "record definition must be a struct",
				Pos:     iter.Value().Pos(),
			}
		}
		records = append(records, pending{name: name, val: iter.Value()})
		s.records[name] = nil
		s.order = append(s.order, name)
	}
	if len(records) == 0 {
		return nil, &CompileError{
			Field:   "schema",
			Message: "at least one record definition is required",
			Pos:     v.Pos(),
		}
	}

	// Second pass: compile fields.
	for _, rec := range records {
		fields, err := s.compileRecord(rec.name, rec.val)
		if err != nil {
			return nil, err
		}
		s.records[rec.name] = fields
	}

	return s, nil
}

// compileRecord extracts the ordered field descriptors of one record.
func (s *Schema) compileRecord(recordName string, v cue.Value) ([]FieldDescriptor, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldDescriptor
	for iter.Next() {
		fieldName := iter.Selector().Unquoted()
		fd, err := s.compileField(recordName, fieldName, iter.Value())
		if err != nil {
			return nil, err
		}
		fd.Name = fieldName
		fields = append(fields, fd)
	}
	return fields, nil
}

// compileField builds a descriptor for one field value, recursing into
// list element types and inline record definitions.
func (s *Schema) compileField(recordName, fieldName string, v cue.Value) (FieldDescriptor, error) {
	label := recordName + "." + fieldName
	fd := FieldDescriptor{}

	if err := s.parsePIIAttribute(label, v, &fd); err != nil {
		return fd, err
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		fd.Type = TypeString
	case cue.IntKind:
		fd.Type = TypeInt
	case cue.FloatKind, cue.NumberKind:
		fd.Type = TypeFloat
	case cue.BoolKind:
		fd.Type = TypeBool
	case cue.ListKind:
		fd.Type = TypeList
		elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if elem.Exists() {
			efd, err := s.compileField(recordName, fieldName+"[]", elem)
			if err != nil {
				return fd, err
			}
			fd.Elem = &efd
		}
	case cue.StructKind:
		return s.compileStructField(label, v, fd)
	default:
		return fd, &CompileError{
			Field:   label,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	if fd.Category != "" && fd.Type != TypeString && fd.Type != TypeInt && fd.Type != TypeFloat && fd.Type != TypeBool {
		return fd, &CompileError{
			Field:   label,
			Message: fmt.Sprintf("category %q declared on non-scalar field of type %s", fd.Category, fd.Type),
			Pos:     v.Pos(),
		}
	}

	return fd, nil
}

// compileStructField decides between a record reference, an inline
// record, and an open mapping.
func (s *Schema) compileStructField(label string, v cue.Value, fd FieldDescriptor) (FieldDescriptor, error) {
	// Pattern-constrained structs ({[string]: T}) are open mappings:
	// keys are data, not schema, and are never classified.
	if pattern := v.LookupPath(cue.MakePath(cue.AnyString)); pattern.Exists() {
		fd.Type = TypeMap
		return fd, nil
	}

	// A reference to another record in the schema block.
	if _, path := v.ReferencePath(); len(path.Selectors()) > 0 {
		sels := path.Selectors()
		name := sels[len(sels)-1].Unquoted()
		if _, ok := s.records[name]; !ok {
			return fd, &CompileError{
				Field:   label,
				Message: fmt.Sprintf("reference to undefined record %q", name),
				Pos:     v.Pos(),
			}
		}
		fd.Type = TypeRecord
		fd.Record = name
		return fd, nil
	}

	// Inline struct: compile as an anonymous record named after its path.
	fields, err := s.compileRecord(label, v)
	if err != nil {
		return fd, err
	}
	s.records[label] = fields
	s.order = append(s.order, label)
	fd.Type = TypeRecord
	fd.Record = label
	return fd, nil
}

// parsePIIAttribute reads @pii(category, locale=tag) off a field.
func (s *Schema) parsePIIAttribute(label string, v cue.Value, fd *FieldDescriptor) error {
	attr := v.Attribute(piiAttribute)
	if attr.Err() != nil {
		return nil // no @pii attribute
	}

	tag, err := attr.String(0)
	if err != nil || tag == "" {
		return &CompileError{
			Field:   label,
			Message: "@pii attribute requires a category tag as its first argument",
			Pos:     v.Pos(),
		}
	}
	fd.Category = tag

	for i := 1; i < attr.NumArgs(); i++ {
		if locale, found, _ := attr.Lookup(i, "locale"); found {
			if _, err := language.Parse(locale); err != nil {
				return &CompileError{
					Field:   label,
					Message: fmt.Sprintf("invalid locale %q in @pii attribute", locale),
					Pos:     v.Pos(),
				}
			}
			fd.Locale = locale
		}
	}
	return nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
