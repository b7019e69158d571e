package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/docopt/docopt-go"

	"github.com/denismitr/btmdump"
	"github.com/denismitr/btmdump/internal/store"
	"github.com/denismitr/btmdump/options"
)

const VERSION = "0.1"

const USAGEf = `Usage:
  %s [options] [<path>...]
  %s (-h | --help | --version)

Dump macOS background task management stores: login items, launch agents
and daemons. Without a path the newest store in the store directory is read.

Options:
  --json           Print the structured mapping as JSON
  --query=<path>   Print the value found at a gjson path of the JSON mapping
  --list           Print one line per top-level item
  --order=<order>  Item order, ASC or DESC [default: ASC]
  --owner=<key>    Only show items of this owner key
  --prefix=<id>    Only show items whose identifier starts with <id>
  --match=<glob>   Only show items whose identifier matches <glob>
  --config=<file>  Read settings from a TOML file
  -v               Log projection warnings to stderr
`

func main() {
	progName := filepath.Base(os.Args[0])
	usageText := fmt.Sprintf(USAGEf, progName, progName)
	parsedArgs, err := docopt.ParseArgs(usageText, os.Args[1:], VERSION)
	dieIf(err, "docopt failed")

	fc := &fileConfig{}
	if path, ok := parsedArgs["--config"].(string); ok {
		fc, err = loadConfig(path)
		dieIf(err, "could not read config")
	}

	verbose := fc.Verbose || optSpecified("-v", parsedArgs)
	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(os.Stderr, progName+": ", 0)
	}

	lo, err := listOptions(parsedArgs)
	dieIf(err, "usage")

	d, closer, err := btmdump.NewDecoder(fc.decoderConfig(logger))
	dieIf(err, "could not create decoder")
	defer closer()

	paths, _ := parsedArgs["<path>"].([]string)
	if len(paths) == 0 {
		latest, err := store.Latest(fc.storeDir())
		dieIf(err, "could not find a store")
		paths = []string{latest}
	}

	query, _ := parsedArgs["--query"].(string)
	for _, path := range paths {
		switch {
		case query != "":
			doc, err := document(d, path, lo)
			dieIf(err, path)
			raw, err := doc.Raw(query)
			dieIf(err, path)
			fmt.Println(raw)
		case optSpecified("--json", parsedArgs):
			doc, err := document(d, path, lo)
			dieIf(err, path)
			os.Stdout.Write(doc.Pretty())
		case optSpecified("--list", parsedArgs):
			res, err := d.DecodeFile(path)
			dieIf(err, path)
			sums, err := res.Storage.Summaries(lo)
			dieIf(err, path)
			for _, sum := range sums {
				fmt.Println(sum)
			}
		default:
			res, err := d.DecodeFile(path)
			dieIf(err, path)
			for line := range res.Text(lo) {
				fmt.Println(line)
			}
		}
	}
}

func document(d *btmdump.Decoder, path string, lo *options.ListOptions) (*btmdump.Document, error) {
	data, err := store.Read(path)
	if err != nil {
		return nil, err
	}
	return d.Document(path, data, lo)
}

func listOptions(parsedArgs docopt.Opts) (*options.ListOptions, error) {
	lo := options.List().OwnerNames(store.AccountName)

	order, _ := parsedArgs["--order"].(string)
	switch options.Order(strings.ToUpper(order)) {
	case options.Ascend, "":
	case options.Descend:
		lo.SetOrder(options.Descend)
	default:
		return nil, fmt.Errorf("--order must be ASC or DESC, not %q", order)
	}

	if owner, ok := parsedArgs["--owner"].(string); ok {
		lo.OnlyOwner(owner)
	}
	if prefix, ok := parsedArgs["--prefix"].(string); ok {
		lo.IdentifierPrefix(prefix)
	}
	if pattern, ok := parsedArgs["--match"].(string); ok {
		lo.IdentifierMatch(pattern)
	}

	return lo, nil
}

func optSpecified(key string, parsedArgs docopt.Opts) bool {
	val, err := parsedArgs.Bool(key)
	if err != nil {
		die("BUG: no key %q in docopt result %+#v", key, parsedArgs)
	}
	return val
}

func dieIf(err error, context string) {
	if err != nil {
		die("%s: %v", context, err)
	}
}

func die(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, filepath.Base(os.Args[0])+": "+format+"\n", args...)
	os.Exit(1)
}
