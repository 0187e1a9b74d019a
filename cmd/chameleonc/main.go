// Command chameleonc compiles and renders a single template file, for
// smoke-testing a document outside of a Go program.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/malthe/chameleon"
)

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprintln(os.Stderr, "Usage: chameleonc [flags] template")
		_, _ = fmt.Fprintln(os.Stderr, "")
		_, _ = fmt.Fprintln(os.Stderr, "Renders template to stdout, with scope data read as a JSON object from -data.")
		flag.PrintDefaults()
	}
	dataFlag := flag.String("data", "", "path to a JSON file providing the render scope (defaults to {})")
	macroFlag := flag.String("macro", "", "render only this named macro instead of the whole document")
	strictFlag := flag.Bool("strict", false, "reject attributes in an unrecognized namespace")
	digestFlag := flag.Bool("digest", false, "print the compiled artifact's digest instead of rendering")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	settings := chameleon.DefaultSettings()
	settings.Strict = *strictFlag

	tmpl := chameleon.Parse(path, settings)

	if *digestFlag {
		dig, err := tmpl.Digest()
		if err != nil {
			fatal(err)
		}
		fmt.Println(dig)
		return
	}

	scope, err := loadScope(*dataFlag)
	if err != nil {
		fatal(err)
	}

	var out string
	if *macroFlag != "" {
		macros, err := tmpl.Macros()
		if err != nil {
			fatal(err)
		}
		fn, ok := macros[*macroFlag]
		if !ok {
			fatal(fmt.Errorf("chameleonc: no macro %q in %s", *macroFlag, path))
		}
		out, err = fn(scope, nil, nil)
		if err != nil {
			fatal(err)
		}
	} else {
		out, err = tmpl.Render(scope, nil, nil)
		if err != nil {
			fatal(err)
		}
	}
	fmt.Print(out)
}

func loadScope(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scope map[string]interface{}
	if err := json.Unmarshal(data, &scope); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scope, nil
}

func fatal(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
