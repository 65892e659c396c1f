/*
minsgt finds minimum duplication/loss super gene trees: rooted binary trees
that display every input gene tree, keep the given clades unchanged, and have
minimum reconciliation cost against a species tree.

usage: minsgt [ flags ] <command> <species_tree> <gene_trees>

commands:

	infer		finds co-optimal super gene trees of the gene trees
	score		computes the duplication/loss cost of each gene tree

positional arguments:

	<species_tree>	rooted binary species newick tree
	<gene_trees>	gene tree file (gene leaves are named <gene><separator><species>)

flags:

	-c file
	  	TOML config file; flags set on the command line take precedence
	-d	keep the duplication/speciation event of split gene trees
	-D int
	  	duplication cost (default 1)
	-f format
	  	gene tree format [ newick | nexus ] (default "newick")
	-h	prints this message and exits
	-l int
	  	max number of co-optimal super gene trees (default 1)
	-L int
	  	loss cost (default 1)
	-n int
	  	number of parallel processes
	-o prefix
	  	also write results to <prefix>.csv (and <prefix>.png for score)
	-p file
	  	newick file of clades to preserve (infer)
	-s string
	  	gene/species separator in leaf labels (default "__")
	-v	prints version number and exits

examples:

	  infer command example:
		minsgt -l 5 infer species.nwk gene-trees.nwk > supertrees.nwk 2> log.txt

	  score command example:
		minsgt -o costs score species.nwk gene-trees.nwk > costs.csv 2> log.txt
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/evolbioinfo/gotree/tree"

	"github.com/jsdoublel/minsgt/internal/infer"
	pr "github.com/jsdoublel/minsgt/internal/prep"
	"github.com/jsdoublel/minsgt/internal/score"
)

const (
	Version    = "v0.1.0"
	ErrMessage = "minsgt encountered an error ::"

	Infer Command = iota
	Score
)

type Command int

var parseCommand = map[string]Command{
	"infer": Infer,
	"score": Score,
}

type args struct {
	command      Command   // infer or score
	cfg          pr.Config // run settings (config file + flags)
	speciesFile  string    // species tree
	geneTreeFile string    // gene trees
	preserveFile string    // clades to preserve (optional)
	outPrefix    string    // output prefix (optional)
}

func setNProcs(nprocs int) int {
	maxProcs := runtime.GOMAXPROCS(0)
	switch {
	case nprocs > maxProcs:
		log.Printf("%d is greater than available processes (%d); limit set to %d\n", nprocs, maxProcs, maxProcs)
		return maxProcs
	case nprocs <= 0:
		log.Printf("number of processes not set; defaulting to %d processes\n", maxProcs)
		return maxProcs
	default:
		return nprocs
	}
}

func parseArgs() args {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr,
			"usage: minsgt [ flags ] <command> <species_tree> <gene_trees>\n",
			"\n",
			"commands:\n\n",
			"  infer\t\tfinds co-optimal super gene trees of the gene trees\n",
			"  score\t\tcomputes the duplication/loss cost of each gene tree\n",
			"\n",
			"positional arguments:\n\n",
			"  <species_tree>\trooted binary species newick tree\n",
			"  <gene_trees>\tgene tree file (gene leaves are named <gene><separator><species>)\n",
			"\n",
			"flags:\n\n",
		)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr,
			"\n",
			"examples:\n\n",
			"  infer command example:\n",
			"\tminsgt -l 5 infer species.nwk gene-trees.nwk > supertrees.nwk 2> log.txt\n\n",
			"  score command example:\n",
			"\tminsgt -o costs score species.nwk gene-trees.nwk > costs.csv 2> log.txt\n",
		)
	}
	defaults := pr.DefaultConfig()
	format := defaults.Format
	limit := defaults.Limit
	flag.Var(&format, "f", "gene tree `format` [ newick | nexus ] (default \"newick\")")
	flag.Var(&limit, "l", "max number of co-optimal super gene trees")
	configFile := flag.String("c", "", "TOML config `file`; flags set on the command line take precedence")
	dupSpec := flag.Bool("d", false, "keep the duplication/speciation event of split gene trees")
	dupCost := flag.Int("D", defaults.DupCost, "duplication cost")
	lossCost := flag.Int("L", defaults.LossCost, "loss cost")
	sep := flag.String("s", defaults.Separator, "gene/species separator in leaf labels")
	preserveFile := flag.String("p", "", "newick `file` of clades to preserve (infer)")
	outPrefix := flag.String("o", "", "also write results to <prefix>.csv (and <prefix>.png for score)")
	help := flag.Bool("h", false, "prints this message and exits")
	ver := flag.Bool("v", false, "prints version number and exits")
	nprocs := flag.Int("n", 0, "number of parallel processes (0 uses every available processor)")
	flag.Parse()
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if *ver {
		fmt.Printf("minsgt version %s\n", Version)
		os.Exit(0)
	}
	if flag.NArg() != 3 {
		parserError("three positional arguments required: <command> <species_tree> <gene_tree_file>")
	}
	cmd, ok := parseCommand[flag.Arg(0)]
	if !ok {
		parserError(fmt.Sprintf("\"%s\" is not a valid command: either \"infer\" or \"score\" required", flag.Arg(0)))
	}
	cfg := defaults
	if *configFile != "" {
		var err error
		if cfg, err = pr.LoadConfig(*configFile); err != nil {
			parserError(err.Error())
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.Format = format
		case "l":
			cfg.Limit = limit
		case "d":
			cfg.PreserveDupSpec = *dupSpec
		case "D":
			cfg.DupCost = *dupCost
		case "L":
			cfg.LossCost = *lossCost
		case "s":
			cfg.Separator = *sep
		case "n":
			cfg.NProcs = *nprocs
		}
	})
	cfg.NProcs = setNProcs(cfg.NProcs)
	if err := cfg.Validate(); err != nil {
		parserError(err.Error())
	}
	return args{
		command:      cmd,
		cfg:          cfg,
		speciesFile:  flag.Arg(1),
		geneTreeFile: flag.Arg(2),
		preserveFile: *preserveFile,
		outPrefix:    *outPrefix,
	}
}

// prints message, usage, and exits (status code 1)
func parserError(message string) {
	fmt.Fprintln(os.Stderr, message)
	flag.Usage()
	os.Exit(1)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("minsgt version %s", Version)
	args := parseArgs()
	tre, geneTrees, err := pr.ReadInputFiles(args.speciesFile, args.geneTreeFile, args.cfg.Format)
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	scorer, err := score.NewDLScorer(score.WithDupCost(args.cfg.DupCost), score.WithLossCost(args.cfg.LossCost))
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	speciesOf := pr.SpeciesOf(args.cfg.Separator)
	switch args.command {
	case Infer:
		log.Println("running infer...")
		var preserve []*tree.Tree
		if args.preserveFile != "" {
			if preserve, err = pr.ReadPreserveFile(args.preserveFile); err != nil {
				log.Fatalf("%s %s\n", ErrMessage, err)
			}
		}
		result, err := infer.Infer(tre, geneTrees.Trees, preserve, infer.InferOptions{
			NProcs:          args.cfg.NProcs,
			Limit:           int(args.cfg.Limit),
			PreserveDupSpec: args.cfg.PreserveDupSpec,
			Scorer:          scorer,
			SpeciesOf:       speciesOf,
		})
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		newicks, costs := make([]string, len(result.Solutions)), make([]int, len(result.Solutions))
		for i, sol := range result.Solutions {
			newicks[i], costs[i] = sol.Tree.Newick(), sol.Cost
			fmt.Println(newicks[i])
		}
		if args.outPrefix != "" {
			writeOutput(args.outPrefix+".csv", func(f *os.File) error {
				return pr.WriteResultsToCSV(newicks, costs, f)
			})
		}
	case Score:
		log.Println("running score...")
		td, err := pr.PrepareSpecies(tre)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		costs, err := score.GeneTreeCosts(td, geneTrees.Trees, speciesOf, scorer, args.cfg.NProcs)
		if err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if err := pr.WriteCostsToCSV(geneTrees.Names, costs, os.Stdout); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
		if args.outPrefix != "" {
			writeOutput(args.outPrefix+".csv", func(f *os.File) error {
				return pr.WriteCostsToCSV(geneTrees.Names, costs, f)
			})
			if err := pr.WriteCostBarplot(geneTrees.Names, costs, args.outPrefix); err != nil {
				log.Fatalf("%s %s\n", ErrMessage, err)
			}
		}
	default:
		panic(fmt.Sprintf("invalid command (%d)", args.command))
	}
}

func writeOutput(path string, write func(f *os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Fatalf("%s %s\n", ErrMessage, err)
		}
	}()
	if err := write(f); err != nil {
		log.Fatalf("%s %s\n", ErrMessage, err)
	}
}
