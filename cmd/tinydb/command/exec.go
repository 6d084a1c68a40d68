package command

import (
	"flag"
	"fmt"
	"strings"

	"github.com/embeddb/embeddb/config"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/internal/value"
)

// ExecCommand runs a single SQL statement against a data file and prints
// any result rows, then exits. There is no REPL: every invocation opens the
// file, runs one statement, and closes it.
type ExecCommand struct{}

func (c *ExecCommand) Help() string {
	helpText := `
Usage: embeddb exec [options] <sql>

Options:

	-file="embeddb.db"	Path to the database file (created if missing)
`
	return strings.TrimSpace(helpText)
}

func (c *ExecCommand) Synopsis() string {
	return "Run one SQL statement against a database file"
}

func (c *ExecCommand) Run(args []string) int {
	var dataFile string
	flags := flag.NewFlagSet("exec", flag.ContinueOnError)
	flags.StringVar(&dataFile, "file", "embeddb.db", "database file path")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	sql := strings.Join(flags.Args(), " ")
	if sql == "" {
		fmt.Println("no SQL statement provided")
		return 1
	}

	cfg := config.Default()
	cfg.DataFile = dataFile
	database, err := db.Open(cfg)
	if err != nil {
		fmt.Printf("error opening %s: %s\n", dataFile, err)
		return 1
	}
	defer database.Close()

	stmt, err := database.Prepare(sql)
	if err != nil {
		fmt.Printf("parse error: %s\n", err)
		return 1
	}

	if stmt.Mutates() {
		res, err := database.Exec(stmt, nil, nil)
		if err != nil {
			fmt.Printf("error: %s\n", err)
			return 1
		}
		fmt.Printf("OK, %d row(s) affected\n", res.RowsAffected)
		return 0
	}

	res, err := database.Query(stmt, nil)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		return 1
	}
	printRows(res.Columns, res.Rows)
	return 0
}

func printRows(columns []string, rows [][]value.Value) {
	fmt.Println(strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}
