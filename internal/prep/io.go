package prep

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/io/nexus"
	"github.com/evolbioinfo/gotree/tree"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	ErrInvalidFile   = errors.New("invalid file")
	ErrInvalidFormat = errors.New("invalid format")
	ErrWritingFile   = errors.New("error writing file")

	plotBarColor = color.RGBA{R: 37, G: 150, B: 190, A: 255}
)

type Format int

const (
	Newick Format = iota
	Nexus

	plotH = 4 * vg.Inch
	plotW = 6 * vg.Inch

	maxTicks = 20
)

var ParseFormat = map[string]Format{
	"newick": Newick,
	"nexus":  Nexus,
}

func (f *Format) Set(s string) error {
	if format, ok := ParseFormat[s]; ok {
		*f = format
		return nil
	}
	return fmt.Errorf("\"%s\" is not a valid gene tree file format", s)
}

func (f Format) String() string {
	for s, fr := range ParseFormat {
		if fr == f {
			return s
		}
	}
	panic(fmt.Sprintf("format (%d) does not exist", f))
}

type GeneTrees struct {
	Trees []*tree.Tree // gene trees
	Names []string     // gene names
}

// Reads in and validates species tree and gene tree input files.
// Returns an error if the newick format is invalid, or the file is invalid for
// some other reason (e.g., more than one species tree)
func ReadInputFiles(treeFile, genetreesFile string, format Format) (*tree.Tree, *GeneTrees, error) {
	defer silenceLog()()
	tre, err := readTreeFile(treeFile)
	if err != nil {
		return nil, nil, err
	}
	genetrees, err := readGeneTreesFile(genetreesFile, format)
	if err != nil {
		return nil, nil, err
	}
	return tre, genetrees, nil
}

// gotree can be noisy and lead to thousands of log messages while parsing;
// returns the function restoring the logger
func silenceLog() func() {
	flags := log.Flags()
	lout := log.Writer()
	log.SetOutput(io.Discard)
	return func() {
		log.SetOutput(lout)
		log.SetFlags(flags)
	}
}

// reads and validates species tree file
func readTreeFile(treeFile string) (*tree.Tree, error) {
	treBytes, err := os.ReadFile(treeFile)
	if err != nil {
		return nil, fmt.Errorf("error reading tree file: %w", err)
	}
	treBytes = bytes.TrimSpace(treBytes)
	if bytes.Count(treBytes, []byte{byte('\n')}) != 0 || len(treBytes) == 0 {
		return nil, fmt.Errorf("%w, there should only be exactly one newick tree in tree file %s",
			ErrInvalidFile, treeFile)
	}
	tre, err := newick.NewParser(bytes.NewReader(treBytes)).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w, error parsing tree newick string from %s: %s",
			ErrInvalidFormat, treeFile, err.Error())
	}
	tre.ClearLengths(true, true)
	tre.ClearComments()
	tre.ClearSupports()
	return tre, nil
}

// reads and validates gene tree file
func readGeneTreesFile(genetreesFile string, format Format) (*GeneTrees, error) {
	file, err := os.Open(genetreesFile)
	if err != nil {
		return nil, fmt.Errorf("error opening %s, %w", genetreesFile, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			panic(fmt.Sprintf("could not close file %s, %s", genetreesFile, err))
		}
	}()
	geneTreeList := make([]*tree.Tree, 0)
	geneTreeNames := make([]string, 0)
	switch format {
	case Newick:
		scanner := bufio.NewScanner(file)
		for i := 0; scanner.Scan(); i++ {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) != 0 {
				genetree, err := newick.NewParser(bytes.NewReader(line)).Parse()
				if err != nil {
					return nil, fmt.Errorf("%w, error reading gene tree on line %d in %s: %s",
						ErrInvalidFormat, i+1, genetreesFile, err.Error())
				}
				geneTreeList = append(geneTreeList, genetree)
			}
		}
		geneTreeNames = make([]string, 0)
		for i := range len(geneTreeList) {
			geneTreeNames = append(geneTreeNames, strconv.Itoa(i+1))
		}
	case Nexus:
		nex, err := nexus.NewParser(file).Parse()
		if err != nil {
			return nil, fmt.Errorf("%w, error reading gene tree nexus file %s: %s",
				ErrInvalidFormat, genetreesFile, err.Error())
		}
		nex.IterateTrees(func(s string, t *tree.Tree) {
			geneTreeList = append(geneTreeList, t)
			geneTreeNames = append(geneTreeNames, s)
		})
	default:
		return nil, fmt.Errorf("%w, not a valid file format", ErrInvalidFile)
	}
	if len(geneTreeList) < 1 {
		return nil, fmt.Errorf("%w, empty gene tree file %s", ErrInvalidFile, genetreesFile)
	}
	return &GeneTrees{Trees: geneTreeList, Names: geneTreeNames}, nil
}

// Reads the trees (one newick string per line) whose clades must be kept in
// the super gene tree. An empty file gives no trees.
func ReadPreserveFile(preserveFile string) ([]*tree.Tree, error) {
	defer silenceLog()()
	preBytes, err := os.ReadFile(preserveFile)
	if err != nil {
		return nil, fmt.Errorf("error reading preserve file: %w", err)
	}
	trees := make([]*tree.Tree, 0)
	for i, line := range strings.Split(string(preBytes), "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		tre, err := newick.NewParser(strings.NewReader(line)).Parse()
		if err != nil {
			return nil, fmt.Errorf("%w, error reading preserve tree on line %d in %s: %s",
				ErrInvalidFormat, i+1, preserveFile, err.Error())
		}
		trees = append(trees, tre)
	}
	return trees, nil
}

// Write search results csv file to writer.
//
// There are three columns: "Solution", "DL Cost", "Newick"
func WriteResultsToCSV(newicks []string, costs []int, w io.Writer) error {
	if len(newicks) != len(costs) {
		panic(fmt.Sprintf("there should be a cost for every super gene tree, %+v %+v", newicks, costs))
	}
	data := make([][]string, len(newicks)+1)
	data[0] = []string{"Solution", "DL Cost", "Newick"}
	for i := range newicks {
		data[i+1] = []string{strconv.Itoa(i + 1), strconv.Itoa(costs[i]), newicks[i]}
	}
	return writeCSV(data, w)
}

// Write csv file containing the DL cost of every gene tree to writer
func WriteCostsToCSV(names []string, costs []int, w io.Writer) error {
	if len(names) != len(costs) {
		panic(fmt.Sprintf("there should be a cost for every gene tree, %+v %+v", names, costs))
	}
	data := make([][]string, len(names)+1)
	data[0] = []string{"gene", "DL Cost"}
	for i, name := range names {
		data[i+1] = []string{name, strconv.Itoa(costs[i])}
	}
	return writeCSV(data, w)
}

func writeCSV(data [][]string, w io.Writer) (err error) {
	writer := csv.NewWriter(w)
	defer func() {
		writer.Flush()
		if err == nil {
			err = writer.Error()
		} else if writer.Error() != nil {
			log.Printf("error when flushing output csv, %s", writer.Error())
		}
	}()
	if err = writer.WriteAll(data); err != nil {
		err = fmt.Errorf("%w, %s", ErrWritingFile, err)
	}
	return
}

// Saves a bar chart of the DL cost of every gene tree to prefix.png
func WriteCostBarplot(names []string, costs []int, prefix string) error {
	if len(costs) == 0 {
		return fmt.Errorf("%w, no costs to plot", ErrWritingFile)
	}
	p := plot.New()
	p.X.Label.Text = "Gene Tree"
	p.Y.Label.Text = "DL Cost"
	p.Y.Min = 0
	p.Y.Max = math.Max(1, float64(slices.Max(costs)))
	values := make(plotter.Values, len(costs))
	for i, c := range costs {
		values[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	bars.Color = plotBarColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	step := 1
	if len(names) > maxTicks {
		step = int(math.Ceil(float64(len(names)) / maxTicks))
	}
	labels := make([]string, len(names))
	for i, name := range names {
		if i%step == 0 {
			labels[i] = name
		}
	}
	p.NominalX(labels...)
	return p.Save(plotW, plotH, fmt.Sprintf("%s.png", prefix))
}
