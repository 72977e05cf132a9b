// Package schema is the schema collaborator: it compiles CUE record
// definitions into the field descriptors that drive classification.
//
// A schema is a CUE struct of record types. PII categories are declared
// with @pii attributes on fields:
//
//	schema: {
//		User: {
//			email: string @pii(email)
//			name:  string @pii(full_name, locale=en-US)
//			note:  string
//			home:  Address
//			pals:  [...User]
//		}
//		Address: {
//			street: string @pii(street_address)
//			city:   string @pii(city)
//		}
//	}
//
// Field descriptors are immutable once compiled; traversals share them
// read-only.
package schema

import "slices"

// FieldType is the declared structural type of a field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeMap    FieldType = "map"
	TypeRecord FieldType = "record"
)

// FieldDescriptor is the schema metadata for one field.
type FieldDescriptor struct {
	// Name is the field name within its record.
	Name string

	// Type is the declared structural type.
	Type FieldType

	// Record names the referenced record type when Type is TypeRecord.
	Record string

	// Elem describes list elements when Type is TypeList. Nil means
	// untyped elements, traversed without record context.
	Elem *FieldDescriptor

	// Category is the declared PII category tag, empty when the field
	// is not declared sensitive.
	Category string

	// Locale optionally overrides the session locale for this field.
	Locale string
}

// Schema holds compiled record definitions.
type Schema struct {
	records map[string][]FieldDescriptor
	order   []string
}

// Describe returns the ordered field descriptors for a record type.
func (s *Schema) Describe(recordType string) ([]FieldDescriptor, bool) {
	fields, ok := s.records[recordType]
	return fields, ok
}

// Records returns record type names in declaration order.
func (s *Schema) Records() []string {
	return slices.Clone(s.order)
}

// Categories returns every category tag declared anywhere in the
// schema, sorted and deduplicated. Sessions use this to verify all tags
// resolve before any traversal starts.
func (s *Schema) Categories() []string {
	seen := map[string]bool{}
	var tags []string
	for _, fields := range s.records {
		for _, fd := range fields {
			collectCategories(&fd, seen, &tags)
		}
	}
	slices.Sort(tags)
	return tags
}

func collectCategories(fd *FieldDescriptor, seen map[string]bool, tags *[]string) {
	if fd.Category != "" && !seen[fd.Category] {
		seen[fd.Category] = true
		*tags = append(*tags, fd.Category)
	}
	if fd.Elem != nil {
		collectCategories(fd.Elem, seen, tags)
	}
}
