// pangenie-genotype runs the pangenome variant genotyping HMM over a
// chromosome's site-summary sequence and writes per-site genotype
// posteriors and, optionally, a most-likely haplotype path.
//
// See https://github.com/pangenie-go/genotyper for documentation.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pangenie-go/genotyper/cmd"
)

func printHelp() {
	fmt.Fprintln(os.Stderr, "Available commands: genotype")
	fmt.Fprint(os.Stderr, "\n", cmd.GenotypeHelp)
}

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.HelpMessage)
		printHelp()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "genotype":
		err = cmd.Genotype()
	case "help", "-help", "--help", "-h", "--h":
		printHelp()
	default:
		log.Println("Unknown command:", os.Args[1])
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
