// Command tbinspect is a read only inspector for table files.
// Dump mode prints schema, file and row information for every named table to stdout,
// while the default mode opens an interactive browser.
package main

import (
	"flag"
	"fmt"
	"github.com/JoseEd0/tablefile"
	"github.com/JoseEd0/tablefile/schema"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"os"
	"strings"
)

type configuration struct {
	tables tableList
	dump   bool
	limit  int
}

// tableList - Collects repeated -table flags
type tableList []string

func (T *tableList) String() string {
	return strings.Join(*T, ",")
}

func (T *tableList) Set(value string) error {
	*T = append(*T, value)
	return nil
}

// tableReport - Holds everything the renderers need about one table
type tableReport struct {
	name         string
	organization string
	keyField     string
	fields       []schema.Field
	stat         tablefile.TableStat
	headers      []string
	rows         [][]string
	totalRecords int64
	truncated    bool
}

func main() {
	config := parseArguments()

	if len(config.tables) == 0 {
		fmt.Println("Usage: tbinspect -table <name> [-table <name> ...] [-dump] [-limit n]")
		os.Exit(1)
	}

	if config.dump {
		if err := runDump(config.tables, config.limit); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(
		initialBrowserModel(config.tables, config.limit),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArguments - Processes command line flags
func parseArguments() configuration {
	var config configuration

	flag.Var(&config.tables, "table", "Name of a table to inspect, repeat for more tables")
	flag.BoolVar(&config.dump, "dump", false, "Print the named tables to stdout instead of browsing")
	flag.IntVar(&config.limit, "limit", 50, "Maximum number of rows to show per table")

	flag.Parse()

	return config
}

// runDump - Inspects all named tables concurrently and prints one report per table
func runDump(names []string, limit int) error {
	reports := make([]tableReport, len(names))

	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			report, err := inspectTable(name, limit)
			if err != nil {
				return fmt.Errorf("error while inspecting table %s: %s", name, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, report := range reports {
		fmt.Println(renderReport(report))
	}

	return nil
}

// inspectTable - Opens a table, gathers schema, stats and up to limit rows, and closes it again.
// The table is never mutated.
func inspectTable(name string, limit int) (report tableReport, err error) {
	table, err := tablefile.NewTableFromExistingFiles(name, nil)
	if err != nil {
		return
	}
	defer table.CloseFiles()

	report.name = table.Name()
	report.organization = table.Organization().String()
	report.keyField = table.Schema().KeyField().Name
	report.fields = table.Schema().Fields()

	report.stat, err = table.Stat()
	if err != nil {
		return
	}
	report.totalRecords = report.stat.Records

	records, err := table.ScanAll()
	if err != nil {
		return
	}
	if len(records) > limit {
		records = records[:limit]
		report.truncated = true
	}

	report.headers = make([]string, len(report.fields))
	for i, field := range report.fields {
		report.headers[i] = field.Name
	}

	report.rows = make([][]string, len(records))
	for i, record := range records {
		row := make([]string, len(record))
		for j, value := range record {
			row[j] = formatValue(value)
		}
		report.rows[i] = row
	}

	return
}

// formatValue - Renders a single record value for display
func formatValue(value any) string {
	if value == nil {
		return "NULL"
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	case float32:
		return fmt.Sprintf("%g", v)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
