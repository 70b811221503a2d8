package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"github.com/yasos/elftoyaff/pkg/elfmodel"
	"github.com/yasos/elftoyaff/pkg/mkimage"
	"github.com/yasos/elftoyaff/pkg/utils"
	"github.com/yasos/elftoyaff/pkg/yaff"
)

var version string

const usage = `Usage: %s [options] -i <elf> -o <yaff>

Converts an ELF executable or shared library to a relocatable YAFF module.

  -i, --input <path>       ELF file to be converted
  -o, --output <path>      path of the generated image
  -t, --type <type>        executable or shared_library (default: from ELF type)
  -s, --libraries [list]   dependent libraries, separated by ',' or ';'
  -d, --dryrun             do everything except writing the image
  -v, --verbose            dump symbol and relocation tables
  -q, --quiet              only report errors
  -l, --log <path>         also write a verbose log to path
      --version            print version

Unknown options are rejected.
`

func main() {
	opts := defaultOptions()
	parseArgs(&opts, os.Args[1:])

	if opts.Input == "" {
		utils.Fatal("no input file, see --help")
	}
	if opts.Output == "" && !opts.DryRun {
		utils.Fatal("no output file, see --help")
	}

	log := utils.NewLogger(utils.NewStdoutSink(opts.Verbose, opts.Quiet))
	if err := run(opts, log); err != nil {
		log.Error("%s", err)
		os.Exit(1)
	}
}

func run(opts mkimage.Options, log *utils.Logger) error {
	if opts.LogFile != "" {
		sink, closer, err := utils.NewFileSink(opts.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		log.AddSink(sink)
	}

	log.Step(" ===========================================")
	log.Step("|    MKIMAGE - (ELF to YASIFF converter)    |")
	log.Step(" ===========================================")
	log.Step("Processing ELF file: %s", opts.Input)

	model, err := elfmodel.Open(opts.Input)
	if err != nil {
		return err
	}

	_, err = mkimage.Run(model, opts, log)
	return err
}

// defaultOptions reads ELFTOYAFF_* variables; flags override them.
func defaultOptions() mkimage.Options {
	opts := mkimage.Options{
		Verbose: env.Bool("ELFTOYAFF_VERBOSE"),
		Quiet:   env.Bool("ELFTOYAFF_QUIET"),
		LogFile: env.Str("ELFTOYAFF_LOG"),
	}
	if libs := env.Str("ELFTOYAFF_LIBRARIES"); libs != "" {
		opts.Libraries = append(opts.Libraries, libs)
	}
	return opts
}

func parseArgs(opts *mkimage.Options, args []string) {
	dashes := func(name string) []string {
		if len(name) == 1 {
			return []string{"-" + name}
		}
		return []string{"--" + name}
	}

	var arg string

	readArg := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option %s: argument missing", opt))
					return false
				}
				arg = args[1]
				args = args[2:]
				return true
			}

			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}

			if rest, ok := utils.RemovePrefix(args[0], prefix); ok {
				arg = rest
				args = args[1:]
				return true
			}
		}
		return false
	}

	readFlag := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	for len(args) > 0 {
		if readFlag("help") || readFlag("h") {
			fmt.Printf(usage, os.Args[0])
			os.Exit(0)
		}

		if readArg("i") || readArg("input") {
			opts.Input = arg
		} else if readArg("o") || readArg("output") {
			opts.Output = arg
		} else if readFlag("version") {
			fmt.Printf("elftoyaff %s\n", version)
			os.Exit(0)
		} else if readFlag("v") || readFlag("verbose") {
			opts.Verbose = true
		} else if readFlag("q") || readFlag("quiet") {
			opts.Quiet = true
		} else if readFlag("d") || readFlag("dryrun") {
			opts.DryRun = true
		} else if readArg("l") || readArg("log") {
			opts.LogFile = arg
		} else if readArg("t") || readArg("type") {
			t, err := yaff.ParseModuleType(arg)
			utils.MustNo(err)
			opts.ModuleType = t
		} else if readFlag("s") || readFlag("libraries") {
			// Takes zero or more values.
			for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
				opts.Libraries = append(opts.Libraries, args[0])
				args = args[1:]
			}
		} else if readArg("s") || readArg("libraries") {
			opts.Libraries = append(opts.Libraries, arg)
		} else if readFlag("separate_text_data") {
			// Ignored
		} else {
			utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
		}
	}
}
