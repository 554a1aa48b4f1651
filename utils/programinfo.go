// Package utils holds small, independent helpers used across the
// genotyper that are simple enough not to need their own package.
package utils

const (
	// ProgramName identifies this tool in log output and usage messages.
	ProgramName = "pangenie-genotype"

	// ProgramVersion is the version of the pangenie-genotype binary.
	ProgramVersion = "1.0.0"

	// ProgramURL points callers at the engine's documentation.
	ProgramURL = "http://github.com/pangenie-go/genotyper"
)
