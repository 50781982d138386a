// Package builtins supplies the KH builtin command table.
//
// Signatures are declared in an embedded JSON manifest, validated against an
// embedded schema at load time; behaviors are Go natives registered under the
// same names. The capability contract is checked once: a manifest entry with
// no native, or a native with no manifest entry, is a programming error and
// panics at startup rather than surfacing as a runtime failure in a script.
package builtins

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kh-lang/kh/core/types"
	"github.com/kh-lang/kh/runtime/interp"
)

//go:embed manifest.json
var manifestJSON []byte

//go:embed manifest.schema.json
var schemaJSON string

type manifest struct {
	Commands []manifestCommand `json:"commands"`
}

type manifestCommand struct {
	Name   string          `json:"name"`
	Return string          `json:"return"`
	Params []manifestParam `json:"params"`
	Flags  []manifestFlag  `json:"flags"`
	Help   string          `json:"help"`
}

type manifestParam struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Binding string `json:"binding"`
	Mutable bool   `json:"mutable"`
}

type manifestFlag struct {
	Name   string          `json:"name"`
	Params []manifestParam `json:"params"`
}

var natives = map[string]interp.Native{}

// register binds one native behavior to its manifest name. Called from
// init() in the per-area files; duplicates are a programming error.
func register(name string, fn interp.Native) {
	if _, dup := natives[name]; dup {
		panic("builtins: duplicate native " + name)
	}
	natives[name] = fn
}

var (
	loadOnce sync.Once
	loadErr  error
	sigs     []*types.Signature
	synopses map[string]string
)

// Signatures returns the builtin signature table, in manifest order. The
// resolver seeds its table with these before loading any script.
func Signatures() []*types.Signature {
	mustLoad()
	return sigs
}

// Natives returns the behavior table keyed by command name.
func Natives() map[string]interp.Native {
	mustLoad()
	return natives
}

// Synopsis returns the one-line help text for a builtin.
func Synopsis(name string) (string, bool) {
	mustLoad()
	s, ok := synopses[name]
	return s, ok
}

func mustLoad() {
	loadOnce.Do(func() { loadErr = load() })
	if loadErr != nil {
		panic("builtins: " + loadErr.Error())
	}
}

func load() error {
	if err := validateManifest(); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(manifestJSON))
	dec.DisallowUnknownFields()
	var m manifest
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("decoding manifest: %w", err)
	}

	synopses = make(map[string]string, len(m.Commands))
	seen := make(map[string]bool, len(m.Commands))
	for _, cmd := range m.Commands {
		if seen[cmd.Name] {
			return fmt.Errorf("manifest declares %q twice", cmd.Name)
		}
		seen[cmd.Name] = true

		sig, err := cmd.signature()
		if err != nil {
			return err
		}
		if err := sig.Validate(); err != nil {
			return err
		}
		if _, ok := natives[cmd.Name]; !ok {
			return fmt.Errorf("manifest declares %q but no native is registered", cmd.Name)
		}
		sigs = append(sigs, sig)
		synopses[cmd.Name] = cmd.Help
	}
	for name := range natives {
		if !seen[name] {
			return fmt.Errorf("native %q has no manifest entry", name)
		}
	}
	return nil
}

func validateManifest() error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("loading manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return fmt.Errorf("compiling manifest schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(manifestJSON, &doc); err != nil {
		return fmt.Errorf("decoding manifest: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

func (c manifestCommand) signature() (*types.Signature, error) {
	ret, err := parseTypeString(c.Return)
	if err != nil {
		return nil, fmt.Errorf("builtin %s: %w", c.Name, err)
	}
	params, err := buildParams(c.Name, c.Params)
	if err != nil {
		return nil, err
	}
	sig := &types.Signature{
		Name:   c.Name,
		Params: params,
		Return: ret,
		Origin: "builtin",
	}
	for _, f := range c.Flags {
		fparams, err := buildParams(c.Name+" -"+f.Name, f.Params)
		if err != nil {
			return nil, err
		}
		sig.Flags = append(sig.Flags, types.Flag{Name: f.Name, Params: fparams})
	}
	return sig, nil
}

func buildParams(owner string, specs []manifestParam) ([]types.Parameter, error) {
	params := make([]types.Parameter, 0, len(specs))
	for _, p := range specs {
		t, err := parseTypeString(p.Type)
		if err != nil {
			return nil, fmt.Errorf("builtin %s, parameter %s: %w", owner, p.Name, err)
		}
		var binding types.Binding
		switch p.Binding {
		case "required":
			binding = types.Required
		case "optional":
			binding = types.Optional
		case "variadic":
			binding = types.Variadic
		default:
			return nil, fmt.Errorf("builtin %s, parameter %s: unknown binding %q", owner, p.Name, p.Binding)
		}
		params = append(params, types.Parameter{
			Name:    p.Name,
			Type:    t,
			Binding: binding,
			Mutable: p.Mutable,
		})
	}
	return params, nil
}

// parseTypeString reads a type as written in source: a primitive name or a
// List[...]/Option[...]/Tuple[...] application.
func parseTypeString(s string) (types.Type, error) {
	t, rest, err := parseTypePrefix(strings.TrimSpace(s))
	if err != nil {
		return types.Type{}, err
	}
	if rest != "" {
		return types.Type{}, fmt.Errorf("invalid type %q: trailing %q", s, rest)
	}
	return t, nil
}

func parseTypePrefix(s string) (types.Type, string, error) {
	head := s
	if i := strings.IndexAny(s, "[,]"); i >= 0 {
		head = s[:i]
	}
	head = strings.TrimSpace(head)
	rest := strings.TrimSpace(s[len(head):])

	if t, ok := types.PrimitiveByName(head); ok {
		return t, rest, nil
	}

	if head != "List" && head != "Option" && head != "Tuple" {
		return types.Type{}, "", fmt.Errorf("unknown type %q", head)
	}
	if !strings.HasPrefix(rest, "[") {
		return types.Type{}, "", fmt.Errorf("type %s needs element types", head)
	}
	rest = strings.TrimSpace(rest[1:])
	var elems []types.Type
	for {
		elem, r, err := parseTypePrefix(rest)
		if err != nil {
			return types.Type{}, "", err
		}
		elems = append(elems, elem)
		rest = strings.TrimSpace(r)
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimSpace(rest[1:])
			continue
		}
		if strings.HasPrefix(rest, "]") {
			rest = strings.TrimSpace(rest[1:])
			break
		}
		return types.Type{}, "", fmt.Errorf("unterminated %s[...]", head)
	}

	switch head {
	case "List":
		if len(elems) != 1 {
			return types.Type{}, "", fmt.Errorf("List takes exactly one element type")
		}
		return types.ListOf(elems[0]), rest, nil
	case "Option":
		if len(elems) != 1 {
			return types.Type{}, "", fmt.Errorf("Option takes exactly one element type")
		}
		return types.OptionOf(elems[0]), rest, nil
	default:
		return types.TupleOf(elems...), rest, nil
	}
}
