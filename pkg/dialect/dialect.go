// Package dialect holds the injected keyword/primitive tables that the
// Instance Compiler consults when emitting TGT. Swapping a dialect changes
// only the lexemes a compiled program uses, never the structure of the
// emitted subroutines.
package dialect

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Table is one dialect: the primitive map, the reserved identifier set,
// and the codegen keyword map spec.md §6 describes.
type Table struct {
	Name string `toml:"name"`

	// Primitives maps an SRC primitive statement to its TGT lexeme, e.g.
	// "step" -> "STEP".
	Primitives map[string]string `toml:"primitives"`

	// Reserved holds SRC-side keywords a fn name must not collide with
	// (independent from the primitive and codegen tables).
	Reserved map[string]bool `toml:"reserved"`

	// Keywords maps codegen-only names ("end", "if", "is", "not", "else",
	// "while", "for", "for-suffix") and condition atoms ("wall", "flag",
	// "home", "north", "south", "east", "west") to their TGT lexemes.
	Keywords map[string]string `toml:"keywords"`
}

// Primitive looks up an SRC primitive's TGT lexeme.
func (t *Table) Primitive(name string) (string, bool) {
	v, ok := t.Primitives[name]
	return v, ok
}

// IsReserved reports whether name collides with a dialect keyword, a
// primitive's TGT lexeme, or a codegen keyword's TGT lexeme — mirroring
// numka.py's redefinition guard (fn_name.upper() in builtin_fns.values()),
// which upper-cases before comparing against all three tables.
func (t *Table) IsReserved(name string) bool {
	if t.Reserved[name] {
		return true
	}
	upper := strings.ToUpper(name)
	for _, v := range t.Primitives {
		if v == upper {
			return true
		}
	}
	for _, v := range t.Keywords {
		if v == upper {
			return true
		}
	}
	return false
}

// Keyword looks up a codegen-only keyword's TGT lexeme, panicking if the
// table is malformed — every built-in and loaded dialect must define the
// full fixed keyword set.
func (t *Table) Keyword(name string) string {
	v, ok := t.Keywords[name]
	if !ok {
		panic(fmt.Sprintf("dialect %q missing required keyword %q", t.Name, name))
	}
	return v
}

// requiredKeywords is the fixed set every dialect must supply.
var requiredKeywords = []string{
	"end", "if", "is", "not", "else", "while", "for", "for-suffix",
	"wall", "flag", "home", "north", "south", "east", "west",
}

// Validate checks that a loaded or built-in table defines everything the
// Instance Compiler will ask for.
func (t *Table) Validate() error {
	for _, k := range requiredKeywords {
		if _, ok := t.Keywords[k]; !ok {
			return fmt.Errorf("dialect %q: missing codegen keyword %q", t.Name, k)
		}
	}
	for _, p := range []string{"step", "left", "pick", "place", "stop"} {
		if _, ok := t.Primitives[p]; !ok {
			return fmt.Errorf("dialect %q: missing primitive %q", t.Name, p)
		}
	}
	return nil
}

// builtins holds the dialects karelc ships without needing a TOML file on
// disk, grounded verbatim on numka.py's builtin_dialects literal.
var builtins = map[string]*Table{
	"PyKarel/Kvm": {
		Name: "PyKarel/Kvm",
		Primitives: map[string]string{
			"step":  "STEP",
			"left":  "LEFT",
			"pick":  "PICK",
			"place": "PLACE",
			"stop":  "STOP",
		},
		Reserved: map[string]bool{"end": true, "until": true, "repeat": true},
		Keywords: map[string]string{
			"end": "END", "if": "IF", "is": "IS", "not": "ISNOT",
			"else": "ELSE", "while": "UNTIL", "for": "REPEAT", "for-suffix": "-TIMES",
			"wall": "WALL", "flag": "FLAG", "home": "HOME",
			"north": "NORTH", "south": "SOUTH", "east": "EAST", "west": "WEST",
		},
	},
	"VisK99": {
		Name: "VisK99",
		Primitives: map[string]string{
			"step":  "KROK",
			"left":  "VLEVO-VBOK",
			"pick":  "ZVEDNI",
			"place": "POLOŽ",
			"stop":  "STOP",
		},
		Reserved: map[string]bool{"konec": true, "dokud": true, "opakuj": true},
		Keywords: map[string]string{
			"end": "KONEC", "if": "KDYŽ", "is": "JE", "not": "NENÍ",
			"else": "JINAK", "while": "DOKUD", "for": "OPAKUJ", "for-suffix": "-KRÁT",
			"wall": "ZEĎ", "flag": "ZNAČKA", "home": "DOMOV",
			"north": "SEVER", "south": "JIH", "east": "VÝCHOD", "west": "ZÁPAD",
		},
	},
}

// DefaultName is the dialect numka.py and karelc both default to.
const DefaultName = "PyKarel/Kvm"

// Builtin returns a ship-with-the-binary dialect by name.
func Builtin(name string) (*Table, bool) {
	t, ok := builtins[name]
	return t, ok
}

// Names returns the built-in dialect names, for CLI help/validation.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	return names
}

// Load resolves a dialect by name: first against the built-ins, then as
// "<name>.dialect.toml" on each directory in searchPath. This is the
// karelc-specific extension spec.md leaves as an injected table — numka.py
// only ever has the two compiled-in dialects.
func Load(name string, searchPath []string) (*Table, error) {
	if t, ok := Builtin(name); ok {
		return t, nil
	}

	for _, dir := range searchPath {
		path := dir + "/" + name + ".dialect.toml"
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var t Table
		if _, err := toml.DecodeFile(path, &t); err != nil {
			return nil, fmt.Errorf("loading dialect %q from %s: %w", name, path, err)
		}
		if t.Name == "" {
			t.Name = name
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return &t, nil
	}

	return nil, fmt.Errorf("unknown dialect %q (not built in, and no %s.dialect.toml on the import search path)", name, name)
}
