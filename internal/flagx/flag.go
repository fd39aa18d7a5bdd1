// Package flagx lets a component parse its own flags out of an argument list
// that also carries flags and subcommands meant for others.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// Known returns the members of args that name a flag defined on fs, each
// followed by its value, in their original order. The -name, --name and
// -name=value spellings are all recognised. Boolean flags never take the next
// argument as their value. Scanning stops at "--".
func Known(fs *flag.FlagSet, args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, inline, ok := flagName(arg)
		if !ok {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		out = append(out, arg)
		if inline || isBool(f) {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// flagName reports the flag named by arg and whether its value is inline.
func flagName(arg string) (name string, inline, ok bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false, false
	}
	name = strings.TrimPrefix(arg[1:], "-")
	if name == "" || name[0] == '-' || name[0] == '=' {
		return "", false, false
	}
	name, _, inline = strings.Cut(name, "=")
	return name, inline, true
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// ConfigFile returns the path given with -c or -config in args, or "" when
// neither is present. The last occurrence wins.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to a .json, .yaml or .yml config file")
	fs.StringVar(&path, "c", "", "shorthand for -config")
	_ = fs.Parse(Known(fs, args))

	return path
}
