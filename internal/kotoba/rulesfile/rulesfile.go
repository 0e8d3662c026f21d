// Package rulesfile loads operator-defined agents from YAML. A rules file
// names a collection and lists intents, each bound to one of the generic
// record actions (create, list, get, update, delete, total).
package rulesfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/commands"
	"github.com/bdobrica/Kotoba/internal/kotoba/extract"
	"github.com/bdobrica/Kotoba/internal/kotoba/intent"
	"github.com/bdobrica/Kotoba/internal/kotoba/normalize"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "rules.schema.json"

var schema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("rulesfile: bad embedded schema: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Actions an intent may bind to.
const (
	ActionCreate = "create"
	ActionList   = "list"
	ActionGet    = "get"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionTotal  = "total"
)

// File is a decoded rules file.
type File struct {
	Agent      string   `yaml:"agent"`
	Collection string   `yaml:"collection"`
	Locale     string   `yaml:"locale,omitempty"`
	Intents    []Intent `yaml:"intents"`
}

// Intent is one intent of a rules file.
type Intent struct {
	ID       string   `yaml:"id"`
	Action   string   `yaml:"action"`
	Triggers []string `yaml:"triggers"`
	Priority int      `yaml:"priority,omitempty"`

	// OrderBy and Desc order list results.
	OrderBy string `yaml:"order_by,omitempty"`
	Desc    bool   `yaml:"desc,omitempty"`
	// Filters name fields that narrow list and total results.
	Filters []string `yaml:"filters,omitempty"`
	// Where makes a delete match on this field instead of the record id.
	Where string `yaml:"where,omitempty"`
	// Sum is the money field a total adds up.
	Sum string `yaml:"sum,omitempty"`
	// DefaultToday names date fields a create fills with today when absent.
	DefaultToday []string `yaml:"default_today,omitempty"`

	Fields []Field `yaml:"fields,omitempty"`
}

// Field is one field of an intent.
type Field struct {
	Name          string            `yaml:"name"`
	Labels        []string          `yaml:"labels,omitempty"`
	Kind          string            `yaml:"kind"`
	Required      bool              `yaml:"required,omitempty"`
	Positional    bool              `yaml:"positional,omitempty"`
	Enum          []string          `yaml:"enum,omitempty"`
	Synonyms      map[string]string `yaml:"synonyms,omitempty"`
	AllowNegative bool              `yaml:"allow_negative,omitempty"`
	Min           *int64            `yaml:"min,omitempty"`
	Max           *int64            `yaml:"max,omitempty"`
}

// Load reads and parses the rules file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the rules schema, decodes it and checks the
// cross-references the schema cannot express.
func Parse(data []byte) (*File, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules parse: %w", err)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return &f, nil
}

// validateSchema round-trips the YAML document through JSON so the validator
// sees plain JSON values.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("rules parse: %w", err)
	}
	if doc == nil {
		return errors.New("rules parse: empty document")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("rules parse: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("rules parse: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("rules schema: %s", ve.Error())
		}
		return fmt.Errorf("rules schema: %w", err)
	}
	return nil
}

func (f *File) check() error {
	if _, err := normalize.ParseLocale(f.Locale); err != nil {
		return err
	}
	// Any intent may store a field, so list order can name one declared
	// elsewhere in the file.
	stored := make(map[string]bool)
	for _, in := range f.Intents {
		for _, fd := range in.Fields {
			stored[fd.Name] = true
		}
	}
	seen := make(map[string]bool, len(f.Intents))
	for _, in := range f.Intents {
		if seen[in.ID] {
			return fmt.Errorf("intent %q defined twice", in.ID)
		}
		seen[in.ID] = true

		names := make(map[string]bool, len(in.Fields))
		for _, fd := range in.Fields {
			names[fd.Name] = true
		}
		refs := append(append([]string(nil), in.Filters...), in.DefaultToday...)
		if in.Where != "" {
			refs = append(refs, in.Where)
		}
		if in.Sum != "" {
			refs = append(refs, in.Sum)
		}
		for _, r := range refs {
			if !names[r] {
				return fmt.Errorf("intent %q: field %q is referenced but not declared", in.ID, r)
			}
		}
		switch in.OrderBy {
		case "", "id", "created_at":
		default:
			if !stored[in.OrderBy] {
				return fmt.Errorf("intent %q: order_by %q is not a declared field", in.ID, in.OrderBy)
			}
		}
		if in.Action == ActionTotal && in.Sum == "" {
			return fmt.Errorf("intent %q: a total needs a sum field", in.ID)
		}
	}
	return nil
}

// Registry builds and seals a registry for the rules file. Intents that act
// on one record by id get the standard "id" field unless they declare one.
func (f *File) Registry(env agents.Env) (*commands.Registry, error) {
	crud := agents.CRUD{Collection: f.Collection, Clock: env.Clock}
	// An empty locale leaves dates to the interpreter's locale.
	var locale normalize.Locale
	if f.Locale != "" {
		locale, _ = normalize.ParseLocale(f.Locale)
	}

	reg := commands.NewRegistry(f.Agent)
	for _, in := range f.Intents {
		fields, err := in.schema(locale)
		if err != nil {
			return nil, fmt.Errorf("%s: intent %q: %w", f.Agent, in.ID, err)
		}
		var h commands.Handler
		switch in.Action {
		case ActionCreate:
			h = crud.Create(fields, in.DefaultToday...)
		case ActionList:
			h = crud.List(in.OrderBy, in.Desc, in.Filters...)
		case ActionGet:
			h = crud.Get()
		case ActionUpdate:
			h = crud.Update(fields)
		case ActionDelete:
			if in.Where != "" {
				h = crud.DeleteWhere(in.Where)
			} else {
				h = crud.DeleteByID()
			}
		case ActionTotal:
			h = crud.Total(in.Sum, in.Filters...)
		default:
			return nil, fmt.Errorf("%s: intent %q: unknown action %q", f.Agent, in.ID, in.Action)
		}
		err = reg.Register(commands.Entry{
			Rule:    intent.Rule{Intent: in.ID, Patterns: in.Triggers, Priority: in.Priority},
			Fields:  fields,
			Handler: h,
		})
		if err != nil {
			return nil, err
		}
	}
	if err := reg.Seal(); err != nil {
		return nil, err
	}
	return reg, nil
}

func (in Intent) schema(locale normalize.Locale) ([]extract.Field, error) {
	out := make([]extract.Field, 0, len(in.Fields)+1)
	hasID := false
	for _, fd := range in.Fields {
		kind, err := normalize.ParseKind(fd.Kind)
		if err != nil {
			return nil, err
		}
		if fd.Name == "id" {
			hasID = true
		}
		out = append(out, extract.Field{
			Name:          fd.Name,
			Labels:        fd.Labels,
			Kind:          kind,
			Required:      fd.Required,
			Positional:    fd.Positional,
			EnumValues:    fd.Enum,
			Synonyms:      fd.Synonyms,
			AllowNegative: fd.AllowNegative,
			Min:           fd.Min,
			Max:           fd.Max,
			Locale:        locale,
		})
	}
	byID := in.Action == ActionGet || in.Action == ActionUpdate || (in.Action == ActionDelete && in.Where == "")
	if byID && !hasID {
		out = append(out, agents.IDField())
	}
	return out, nil
}
