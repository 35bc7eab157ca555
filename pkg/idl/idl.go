/*
Package idl implements Anchor IDL (interface definition) support: parsing of
the JSON files generated by "anchor build" into target/idl, instruction
discriminators and Borsh encoding of instruction arguments.
*/
package idl

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/nspcc-dev/go-ordered-json"
)

// ErrInvalidIDL is returned for IDL documents that can't be used.
var ErrInvalidIDL = errors.New("invalid IDL")

// IDL is an Anchor program interface description.
type IDL struct {
	Version      string         `json:"version"`
	Name         string         `json:"name"`
	Docs         []string       `json:"docs,omitempty"`
	Instructions []*Instruction `json:"instructions"`
	Accounts     []TypeDef      `json:"accounts,omitempty"`
	Types        []TypeDef      `json:"types,omitempty"`
	Errors       []ErrorCode    `json:"errors,omitempty"`
	Metadata     *Metadata      `json:"metadata,omitempty"`
}

// Metadata is filled in by "anchor deploy".
type Metadata struct {
	Address string `json:"address,omitempty"`
}

// Instruction is a program method.
type Instruction struct {
	Name     string        `json:"name"`
	Docs     []string      `json:"docs,omitempty"`
	Accounts []AccountItem `json:"accounts"`
	Args     []Field       `json:"args"`

	idl *IDL
}

// AccountItem is either a single account or a named group of accounts
// (a nested Accounts structure in the program).
type AccountItem struct {
	Name       string        `json:"name"`
	IsMut      bool          `json:"isMut"`
	IsSigner   bool          `json:"isSigner"`
	IsOptional bool          `json:"isOptional,omitempty"`
	Docs       []string      `json:"docs,omitempty"`
	Accounts   []AccountItem `json:"accounts,omitempty"`
}

// Account is a flattened instruction account, Path contains names of
// enclosing groups joined with dots.
type Account struct {
	AccountItem
	Path string
}

// Field is a named value of the given type.
type Field struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
	Type Type     `json:"type"`
}

// TypeDef is a user-defined type.
type TypeDef struct {
	Name string   `json:"name"`
	Docs []string `json:"docs,omitempty"`
	Type TypeBody `json:"type"`
}

// TypeBody is a struct or an enum definition.
type TypeBody struct {
	Kind     string    `json:"kind"`
	Fields   []Field   `json:"fields,omitempty"`
	Variants []Variant `json:"variants,omitempty"`
}

// Variant is an enum variant, only unit variants are supported for
// encoding.
type Variant struct {
	Name   string          `json:"name"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

// Parse decodes and checks an IDL document.
func Parse(data []byte) (*IDL, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	res := new(IDL)
	if err := d.Decode(res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDL, err)
	}
	if err := res.check(); err != nil {
		return nil, err
	}
	for _, ins := range res.Instructions {
		ins.idl = res
	}
	return res, nil
}

// Load reads the IDL from the given file.
func Load(path string) (*IDL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func (i *IDL) check() error {
	if i.Name == "" {
		return fmt.Errorf("%w: no program name", ErrInvalidIDL)
	}
	seen := make(map[string]bool, len(i.Instructions))
	for _, ins := range i.Instructions {
		if ins == nil || ins.Name == "" {
			return fmt.Errorf("%w: unnamed instruction", ErrInvalidIDL)
		}
		n := SnakeCase(ins.Name)
		if seen[n] {
			return fmt.Errorf("%w: duplicate instruction %s", ErrInvalidIDL, ins.Name)
		}
		seen[n] = true
		for _, a := range ins.Args {
			if err := i.checkType(a.Type); err != nil {
				return fmt.Errorf("%w: instruction %s, argument %s: %w", ErrInvalidIDL, ins.Name, a.Name, err)
			}
		}
	}
	defs := make([]TypeDef, 0, len(i.Types)+len(i.Accounts))
	defs = append(defs, i.Types...)
	defs = append(defs, i.Accounts...)
	for _, td := range defs {
		switch td.Type.Kind {
		case "struct":
			for _, f := range td.Type.Fields {
				if err := i.checkType(f.Type); err != nil {
					return fmt.Errorf("%w: type %s, field %s: %w", ErrInvalidIDL, td.Name, f.Name, err)
				}
			}
		case "enum":
		default:
			return fmt.Errorf("%w: type %s has unknown kind %q", ErrInvalidIDL, td.Name, td.Type.Kind)
		}
	}
	return nil
}

func (i *IDL) checkType(t Type) error {
	switch t.Kind {
	case KindDefined:
		if _, ok := i.TypeDef(t.Name); !ok {
			return fmt.Errorf("undefined type %s", t.Name)
		}
	case KindOption, KindCOption, KindVec, KindArray:
		return i.checkType(*t.Elem)
	}
	return nil
}

// Address returns the program address from metadata (if any).
func (i *IDL) Address() string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata.Address
}

// Instruction returns instruction by name, both camelCase and snake_case
// names are accepted.
func (i *IDL) Instruction(name string) (*Instruction, bool) {
	n := SnakeCase(name)
	for _, ins := range i.Instructions {
		if SnakeCase(ins.Name) == n {
			return ins, true
		}
	}
	return nil, false
}

// TypeDef returns user-defined type by name.
func (i *IDL) TypeDef(name string) (*TypeDef, bool) {
	for k := range i.Types {
		if i.Types[k].Name == name {
			return &i.Types[k], true
		}
	}
	for k := range i.Accounts {
		if i.Accounts[k].Name == name {
			return &i.Accounts[k], true
		}
	}
	return nil, false
}

// Discriminator returns the instruction discriminator.
func (ins *Instruction) Discriminator() []byte {
	return Discriminator(ins.Name)
}

// FlatAccounts returns instruction accounts in the order they're passed to
// the program with groups expanded.
func (ins *Instruction) FlatAccounts() []Account {
	return flatten(nil, "", ins.Accounts)
}

func flatten(res []Account, prefix string, items []AccountItem) []Account {
	for _, it := range items {
		path := it.Name
		if prefix != "" {
			path = prefix + "." + it.Name
		}
		if len(it.Accounts) != 0 {
			res = flatten(res, path, it.Accounts)
			continue
		}
		res = append(res, Account{AccountItem: it, Path: path})
	}
	return res
}
