package cmd

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pangenie-go/genotyper/config"
	"github.com/pangenie-go/genotyper/hmm"
	"github.com/pangenie-go/genotyper/kmer"
	"github.com/pangenie-go/genotyper/probability"
	"github.com/pangenie-go/genotyper/runtime"
	"github.com/pangenie-go/genotyper/siteio"
)

// GenotypeHelp is the usage string for the genotype command.
const GenotypeHelp = "\ngenotype parameters:\n" +
	"pangenie-genotype genotype -sites sites-file-or-dir -out out-file-or-dir\n" +
	"[-chromosome name]\n" +
	"[-coverage expected-haploid-coverage]\n" +
	"[-recombrate recombination-rate]\n" +
	"[-uniform]\n" +
	"[-effective-n effective-population-size]\n" +
	"[-only-paths comma-separated-path-indices]\n" +
	"[-genotyping=false]\n" +
	"[-phasing=false]\n" +
	"[-normalize=false]\n" +
	"[-log-path path]\n" +
	"\n-sites may name a single siteio full-format file (requires -chromosome)\n" +
	"or a directory of one such file per chromosome, named <chromosome>.sites;\n" +
	"in the latter case every chromosome runs concurrently and -out must also\n" +
	"be a directory, receiving one <chromosome>.tsv per input file.\n"

// toHMMConfig builds the hmm.Config equivalent of a config.Config. The two
// types share field names and types by construction; this just makes the
// conversion explicit at the one place the CLI constructs an HMM.
func toHMMConfig(c config.Config) hmm.Config {
	return hmm.Config{
		RunGenotyping: c.RunGenotyping,
		RunPhasing:    c.RunPhasing,
		Recombrate:    c.Recombrate,
		Uniform:       c.Uniform,
		EffectiveN:    c.EffectiveN,
		OnlyPaths:     c.OnlyPaths,
		Normalize:     c.Normalize,
	}
}

// Genotype implements the genotype command: load one chromosome's
// SiteSummary sequence (or a directory of several), run the HMM over each,
// and write the per-site genotyping and phasing results.
func Genotype() error {
	var (
		sitesPath  string
		outPath    string
		chromosome string
		coverage   float64
		recombrate float64
		uniform    bool
		effectiveN float64
		onlyPaths  string
		genotyping bool
		phasing    bool
		normalize  bool
		logPath    string
	)

	defaults := config.Default()

	flags := flag.NewFlagSet("genotype", flag.ContinueOnError)
	flags.StringVar(&sitesPath, "sites", "", "siteio full-format site-summary file, or a directory of them")
	flags.StringVar(&outPath, "out", "", "output TSV file, or a directory of them")
	flags.StringVar(&chromosome, "chromosome", "", "chromosome name, recorded in the output (required when -sites names a single file)")
	flags.Float64Var(&coverage, "coverage", 20, "expected haploid k-mer coverage, used to build the emission probability table")
	flags.Float64Var(&recombrate, "recombrate", defaults.Recombrate, "recombination rate")
	flags.BoolVar(&uniform, "uniform", defaults.Uniform, "use a uniform transition prior instead of the Li-Stephens kernel")
	flags.Float64Var(&effectiveN, "effective-n", defaults.EffectiveN, "effective population size")
	flags.StringVar(&onlyPaths, "only-paths", "", "restrict the run to this comma-separated subset of path indices")
	flags.BoolVar(&genotyping, "genotyping", defaults.RunGenotyping, "compute genotype posteriors")
	flags.BoolVar(&phasing, "phasing", defaults.RunPhasing, "compute the most likely haplotype path (Viterbi)")
	flags.BoolVar(&normalize, "normalize", defaults.Normalize, "normalize genotype posteriors to sum to 1")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 2, GenotypeHelp)

	runID := newRunID()
	setLogOutput(logPath, runID)

	if !checkExist("-sites", sitesPath) {
		os.Exit(1)
	}

	paths, err := parseIntList(onlyPaths)
	if err != nil {
		log.Println("Error: -only-paths:", err)
		os.Exit(1)
	}

	cfg := config.Config{
		RunGenotyping: genotyping,
		RunPhasing:    phasing,
		Recombrate:    recombrate,
		Uniform:       uniform,
		EffectiveN:    effectiveN,
		OnlyPaths:     paths,
		Normalize:     normalize,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	table, err := probability.New(coverage)
	if err != nil {
		return err
	}

	info, err := os.Stat(sitesPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if outPath == "" {
			log.Println("Error: -out is required.")
			os.Exit(1)
		}
		if !checkCreate("-out", filepath.Join(outPath, ".pangenie-genotype-check")) {
			os.Exit(1)
		}
		return genotypeDirectory(sitesPath, outPath, table, cfg)
	}

	if chromosome == "" {
		log.Println("Error: -chromosome is required when -sites names a single file.")
		os.Exit(1)
	}
	if !checkCreate("-out", outPath) {
		os.Exit(1)
	}
	return genotypeOneFile(sitesPath, outPath, chromosome, table, cfg)
}

func genotypeOneFile(sitesFile, outFile, chromosome string, table *probability.Table, cfg config.Config) error {
	sites, err := readFullSites(sitesFile)
	if err != nil {
		return err
	}

	engine, err := hmm.New(sites, table, toHMMConfig(cfg), log.Default())
	if err != nil {
		return err
	}
	results, err := engine.Run(nil)
	if err != nil {
		log.Println("Warning: HMM run ended early:", err)
	}
	logStats(chromosome, engine.Stats())

	out, err := os.Create(outFile)
	if err != nil {
		return err
	}
	writeErr := writeResults(out, chromosome, sites, results)
	closeErr := out.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}

// genotypeDirectory fans out one HMM run per file in sitesDir across
// runtime.RunChromosomes, then writes each chromosome's results to its own
// file under outDir. One chromosome's failure is logged and skipped; it does
// not stop its neighbors (runtime.RunChromosomes's own isolation guarantee).
func genotypeDirectory(sitesDir, outDir string, table *probability.Table, cfg config.Config) error {
	names, err := sitesEntries(sitesDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return err
	}

	jobs := make([]runtime.ChromosomeJob, 0, len(names))
	for _, name := range names {
		full, err := absSitesPath(filepath.Join(sitesDir, name))
		if err != nil {
			return err
		}
		sites, err := readFullSites(full)
		if err != nil {
			return err
		}
		jobs = append(jobs, runtime.ChromosomeJob{
			Name:  strings.TrimSuffix(name, filepath.Ext(name)),
			Sites: sites,
		})
	}

	results, errs := runtime.RunChromosomes(jobs, table, toHMMConfig(cfg), log.Default(), nil)

	var firstErr error
	for i, job := range jobs {
		if errs[i] != nil {
			log.Printf("Chromosome %s failed: %v\n", job.Name, errs[i])
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		outFile := filepath.Join(outDir, job.Name+".tsv")
		out, err := os.Create(outFile)
		if err != nil {
			return err
		}
		writeErr := writeResults(out, job.Name, job.Sites, results[i])
		closeErr := out.Close()
		if writeErr != nil {
			return writeErr
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return firstErr
}

// sitesEntries lists the base names of the per-chromosome site-summary files
// under dir, which genotypeDirectory's single caller needs to turn into one
// runtime.ChromosomeJob per file.
func sitesEntries(dir string) (names []string, err error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		nerr := f.Close()
		if err == nil {
			err = nerr
		}
	}()
	return f.Readdirnames(0)
}

// absSitesPath resolves a sites file path against the working directory if
// it is not already absolute, so log messages and error reports name a
// stable location regardless of how -sites was invoked.
func absSitesPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, path), err
}

func readFullSites(path string) ([]*kmer.SiteSummary, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sites, err := siteio.ReadFull(in)
	closeErr := in.Close()
	if err != nil {
		return nil, err
	}
	return sites, closeErr
}

func logStats(chromosome string, stats hmm.Stats) {
	log.Printf("%s: sites processed %d, uninformative %d, cancelled %v\n",
		chromosome, stats.SitesProcessed, stats.SitesUninformative, stats.Cancelled)
}
