// Package cmd implements the pangenie-genotype command line: flag parsing,
// input/output wiring, and dispatch, in the style of the teacher's
// cmd.Filter/cmd.Split split between a thin main.go and a cmd package that
// does the actual work.
package cmd

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/pangenie-go/genotyper/utils"
)

// ProgramMessage is the first line printed when the binary starts.
var ProgramMessage = fmt.Sprint(
	"\n", utils.ProgramName, " version ", utils.ProgramVersion,
	" compiled with ", runtime.Version(), " - see ", utils.ProgramURL, " for more information.\n",
)

// HelpMessage documents the global help flags, printed ahead of each
// command's own flag help.
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

func parseFlags(flags *flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(ioutil.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		code := 0
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			code = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(code)
	}
	if flags.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

func logCheckFile(parameter, format string, v ...interface{}) {
	if parameter != "" {
		log.Printf(format+" for command line parameter %v.\n", append(v, parameter)...)
	} else {
		log.Printf(format+".\n", v...)
	}
}

func checkExist(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Error: Missing filename")
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		logCheckFile(parameter, "Error: File %v does not exist", filename)
		return false
	} else if os.IsPermission(err) {
		logCheckFile(parameter, "Error: No permission to read file %v", filename)
		return false
	} else {
		logCheckFile(parameter, "Error %v when trying to access file %v", err, filename)
		return false
	}
}

func checkCreate(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Error: Missing filename")
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = ioutil.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if os.IsPermission(err) {
			logCheckFile(parameter, "Error: No permission to create file %v", filename)
		} else {
			logCheckFile(parameter, "Error %v when trying to create file %v", err, filename)
		}
		return false
	}
	_ = os.Remove(filename)
	return true
}

// parseIntList splits a comma-separated list of path indices, as accepted by
// the -only-paths flag. An empty string yields a nil (unrestricted) list.
func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		var v int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &v); err != nil {
			return nil, fmt.Errorf("invalid path index %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

// newRunID generates a short, human-loggable identifier distinguishing
// concurrent runs that share the same log-file timestamp.
func newRunID() string {
	return uuid.NewString()[:12]
}

func createLogFilename(runID string) string {
	t := time.Now()
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/pangenie-genotype/run-%d-%02d-%02d-%02d-%02d-%02d-%v-%s.log",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), zone, runID)
}

// setLogOutput duplicates log output (and anything written to stderr, since
// a panic writes there directly) to a per-run log file under path, following
// the teacher's setLogOutput in cmd/util.go. If path is empty, logging stays
// on stderr only.
func setLogOutput(path, runID string) {
	if path == "" {
		return
	}
	fullPath := filepath.Join(path, createLogFilename(runID))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0700); err != nil {
		log.Panic(err)
	}
	f, err := os.Create(fullPath)
	if err != nil {
		log.Panic(err)
	}
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	log.SetOutput(io.MultiWriter(f, ferr))
	log.Println("Created log file at", fullPath)
	log.Println("Run ID:", runID)
	log.Println("Command line:", os.Args)
}
