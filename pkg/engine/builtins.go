package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/config"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms parameter script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: pipe-size -> pipe_size
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts a whole number. Floats are accepted when integral.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == math.Trunc(v.Val) {
			return int(v.Val), nil
		}
		return 0, fmt.Errorf("expected whole number, got %g", v.Val)
	}
	return 0, fmt.Errorf("expected whole number, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. A keyword with no value counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_medium) and plain strings ("medium").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// script accumulates what a parameter script declares.
type script struct {
	params config.Params
	called bool
}

// paramSetters maps hydrogrid keywords to the field they set.
var paramSetters = map[string]func(p *config.Params, v zygo.Sexp) error{
	"rows": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Rows, err = toInt(v)
		return err
	},
	"columns": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Columns, err = toInt(v)
		return err
	},
	"spacing": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Spacing, err = toFloat64(v)
		return err
	},
	"bucket": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Bucket, err = toKeywordString(v)
		return err
	},
	"pipe-standard": func(p *config.Params, v zygo.Sexp) (err error) {
		p.PipeStandard, err = toKeywordString(v)
		return err
	},
	"pipe-size": func(p *config.Params, v zygo.Sexp) (err error) {
		p.PipeSize, err = toInt(v)
		return err
	},
	// :reservoir takes a boolean or a reservoir size, which also enables it.
	"reservoir": func(p *config.Params, v zygo.Sexp) error {
		if b, err := toBool(v); err == nil {
			p.Reservoir = b
			return nil
		}
		size, err := toKeywordString(v)
		if err != nil {
			return fmt.Errorf("expected true, false or a reservoir size: %w", err)
		}
		p.Reservoir, p.ReservoirSize = true, size
		return nil
	},
	"reservoir-size": func(p *config.Params, v zygo.Sexp) (err error) {
		p.ReservoirSize, err = toKeywordString(v)
		return err
	},
	"height-ratio": func(p *config.Params, v zygo.Sexp) (err error) {
		p.HeightRatio, err = toFloat64(v)
		return err
	},
	"unions": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Unions, err = toBool(v)
		return err
	},
	"join": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Join, err = toBool(v)
		return err
	},
	"optimize": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Optimize, err = toBool(v)
		return err
	},
	"aggressiveness": func(p *config.Params, v zygo.Sexp) (err error) {
		p.Aggressiveness, err = toFloat64(v)
		return err
	},
}

// unitScales are the length helpers available to scripts, as metres per
// unit.
var unitScales = map[string]float64{
	"mm":   0.001,
	"cm":   0.01,
	"inch": 0.0254,
}

// registerBuiltins adds the hydrogrid builtins to a zygomys environment.
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword arguments arrive as "__kw_keyword" strings.
func registerBuiltins(env *zygo.Zlisp, sc *script) {
	// (hydrogrid :rows 2 :columns 3 :spacing 0.6 ...)
	env.AddFunction("hydrogrid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if sc.called {
			return zygo.SexpNull, fmt.Errorf("hydrogrid: a script describes one grid")
		}
		a := parseArgs(args)
		if len(a.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("hydrogrid: unexpected positional argument %s", a.positional[0].SexpString(nil))
		}
		p := sc.params
		for _, kw := range a.order {
			set, ok := paramSetters[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("hydrogrid: unknown keyword :%s", kw)
			}
			if err := set(&p, a.kw[kw]); err != nil {
				return zygo.SexpNull, fmt.Errorf("hydrogrid :%s: %w", kw, err)
			}
		}
		sc.params = p
		sc.called = true
		return zygo.SexpNull, nil
	})

	// (mm 600) => 0.6
	for unit, scale := range unitScales {
		env.AddFunction(unit, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s: expected 1 argument, got %d", name, len(args))
			}
			v, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpFloat{Val: v * scale}, nil
		})
	}

	// (pipe-sizes :metric) => (15 20 25 32 40 50)
	env.AddFunction("pipe_sizes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("pipe-sizes: expected 1 argument, got %d", len(args))
		}
		std, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("pipe-sizes: %w", err)
		}
		sizes := catalog.PipeSizes(catalog.Standard(std))
		if len(sizes) == 0 {
			return zygo.SexpNull, fmt.Errorf("pipe-sizes: unknown standard %q", std)
		}
		out := make([]zygo.Sexp, len(sizes))
		for i, mm := range sizes {
			out[i] = &zygo.SexpInt{Val: int64(mm)}
		}
		return zygo.MakeList(out), nil
	})
}
