// icvm CLI - runs, disassembles, and serves Intcode-style programs
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/icvm/manifest"
	"github.com/chazu/icvm/server"
	"github.com/chazu/icvm/store"
	"github.com/chazu/icvm/vm"
	"github.com/chazu/icvm/vm/pipe"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	inputs := flag.String("in", "", "Comma-separated input values")
	disassemble := flag.Bool("d", false, "Disassemble the program instead of running it")
	chainSeeds := flag.String("chain", "", "Run a chain: comma-separated seed values, one stage per value")
	feedback := flag.Bool("feedback", false, "Loop the chain's last stage back to the first (used with -chain)")
	serveMode := flag.Bool("serve", false, "Start the runner service (Connect HTTP/JSON + CBOR)")
	servePort := flag.Int("port", 0, "Runner service port (used with -serve)")
	dbPath := flag.String("db", "", "Journal database path (SQLite)")
	stepLimit := flag.Uint64("limit", 0, "Maximum instruction count (0 = unlimited)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: icvm [options] [program.ic]\n\n")
		fmt.Fprintf(os.Stderr, "Runs an Intcode-style program. Defaults come from icvm.toml when present.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  icvm prog.ic                     # Run, reading further input from stdin\n")
		fmt.Fprintf(os.Stderr, "  icvm -in 1,2 prog.ic             # Run with inputs queued up front\n")
		fmt.Fprintf(os.Stderr, "  icvm -d prog.ic                  # Print a disassembly listing\n")
		fmt.Fprintf(os.Stderr, "  icvm -chain 4,3,2,1,0 amp.ic     # Five stages in series\n")
		fmt.Fprintf(os.Stderr, "  icvm -chain 9,8,7,6,5 -feedback amp.ic\n")
		fmt.Fprintf(os.Stderr, "\nRunner Service:\n")
		fmt.Fprintf(os.Stderr, "  icvm -serve                      # Serve on the manifest address (default :4568)\n")
		fmt.Fprintf(os.Stderr, "  icvm -serve -port 8080 -db runs.db\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	limit := *stepLimit
	if limit == 0 && mf != nil {
		limit = mf.Program.StepLimit
	}
	journalPath := *dbPath
	if journalPath == "" && mf != nil {
		journalPath = mf.JournalPath()
	}

	if *serveMode {
		if err := serve(mf, *servePort, journalPath, limit); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	program, err := loadProgram(flag.Args(), mf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *disassemble {
		fmt.Println(vm.Disassemble(program))
		return
	}

	values, err := parseValues(*inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid -in value: %v\n", err)
		os.Exit(1)
	}
	if len(values) == 0 && mf != nil {
		for _, v := range mf.Program.Inputs {
			values = append(values, vm.Word(v))
		}
	}

	if *chainSeeds != "" {
		if err := runChain(program, *chainSeeds, values, *feedback, limit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(program, values, limit, journalPath, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadProgram reads the program from the command line path, falling back
// to the manifest's configured program.
func loadProgram(args []string, mf *manifest.Manifest) ([]vm.Word, error) {
	path := ""
	switch {
	case len(args) > 1:
		return nil, fmt.Errorf("expected one program file, got %d", len(args))
	case len(args) == 1:
		path = args[0]
	case mf != nil && mf.Program.Path != "":
		path = mf.ProgramPath()
	default:
		return nil, fmt.Errorf("no program file given and no icvm.toml found")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, err := vm.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}

// parseValues parses a comma-separated value list from a flag.
func parseValues(s string) ([]vm.Word, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return vm.Parse(s)
}

// run executes the program, printing each output as it is emitted. When
// the queued inputs run out, further values are read from stdin one per
// line; EOF leaves the machine stalled.
func run(program []vm.Word, inputs []vm.Word, limit uint64, journalPath string, verbose bool) error {
	queue := pipe.NewPipe(inputs...)
	var outputs []vm.Word

	opts := []vm.MachineOption{
		vm.WithInput(queue.In()),
		vm.WithOutput(func(v vm.Word) {
			outputs = append(outputs, v)
			fmt.Println(v)
		}),
	}
	if limit > 0 {
		opts = append(opts, vm.WithStepLimit(limit))
	}
	m := vm.NewMachine(program, opts...)

	scanner := bufio.NewScanner(os.Stdin)
	var status vm.Status
	for {
		var err error
		status, err = m.Run()
		if err != nil {
			return err
		}
		if status != vm.Stalled {
			break
		}

		fmt.Fprint(os.Stderr, "input> ")
		if !scanner.Scan() {
			break
		}
		v, err := strconv.ParseInt(strings.TrimSpace(scanner.Text()), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid input value: %w", err)
		}
		queue.Push(v)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "%s after %d steps\n", status, m.Steps())
	}

	if journalPath != "" {
		if err := journal(journalPath, program, inputs, outputs, status, m.Steps()); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return nil
}

// journal records a completed CLI run in the journal database.
func journal(path string, program, inputs, outputs []vm.Word, status vm.Status, steps uint64) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = s.Record(
		&pipe.RunRequest{Program: program, Inputs: inputs},
		&pipe.RunResult{Outputs: outputs, Status: status.String(), Steps: steps},
	)
	return err
}

// runChain runs one chain stage per seed value and prints the final
// outputs.
func runChain(program []vm.Word, seedList string, inputs []vm.Word, feedback bool, limit uint64) error {
	seedValues, err := parseValues(seedList)
	if err != nil {
		return fmt.Errorf("invalid -chain value: %w", err)
	}
	seeds := make([][]vm.Word, len(seedValues))
	for i, v := range seedValues {
		seeds[i] = []vm.Word{v}
	}

	opts := []pipe.ChainOption{}
	if feedback {
		opts = append(opts, pipe.WithFeedback())
	}
	if limit > 0 {
		opts = append(opts, pipe.WithStepLimit(limit))
	}
	chain := pipe.NewChain(program, seeds, opts...)
	for _, v := range inputs {
		chain.Input().Push(v)
	}

	outputs, err := chain.Run()
	if err != nil {
		return err
	}
	for _, v := range outputs {
		fmt.Println(v)
	}
	return nil
}

// serve starts the runner service.
func serve(mf *manifest.Manifest, port int, journalPath string, limit uint64) error {
	addr := manifest.DefaultListen
	if mf != nil {
		addr = mf.Server.Listen
	}
	if port != 0 {
		addr = fmt.Sprintf(":%d", port)
	}

	opts := []server.ServerOption{}
	if journalPath != "" {
		j, err := store.Open(journalPath)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, server.WithJournal(j))
	}
	if limit > 0 {
		opts = append(opts, server.WithStepLimit(limit))
	}

	srv, err := server.New(opts...)
	if err != nil {
		return err
	}
	defer srv.Stop()
	return srv.ListenAndServe(addr)
}
