// Command sqlmapctl builds a factory from a config file and calls one
// operation, printing the result as JSON.
//
//	sqlmapctl -config app.env Users.FindAll
//	sqlmapctl -config app.env Users.FindByID 42
//	sqlmapctl -config app.env -list
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	_ "github.com/glebarez/go-sqlite"   // registers "sqlite"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"

	"github.com/go-mizu/sqlmap"
	_ "github.com/go-mizu/sqlmap/internal/demo"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "sqlmapctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("sqlmapctl", flag.ContinueOnError)
	configPath := fs.String("config", "sqlmap.env", "path to the key=value config file")
	list := fs.Bool("list", false, "list mappers and their operations")
	strict := fs.Bool("strict", false, "return execution failures instead of logging them")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := sqlmap.Build(*configPath, sqlmap.WithStrict(*strict))
	if err != nil {
		return err
	}
	defer f.Close()

	if *list {
		for _, name := range f.Mappers() {
			m, _ := f.Mapper(name)
			fmt.Printf("%s: %s\n", name, strings.Join(m.Methods(), ", "))
		}
		return nil
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("usage: sqlmapctl [-config file] Interface.Method [args...]")
	}
	iface, method, ok := strings.Cut(fs.Arg(0), ".")
	if !ok {
		return fmt.Errorf("operation %q is not Interface.Method", fs.Arg(0))
	}
	m, err := f.Mapper(iface)
	if err != nil {
		return err
	}

	callArgs := make([]any, 0, fs.NArg()-1)
	for _, a := range fs.Args()[1:] {
		callArgs = append(callArgs, parseArg(a))
	}
	out, err := m.Call(ctx, method, callArgs...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// parseArg turns a command-line argument into an integer, a JSON object
// (so dotted placeholders can read its keys) or leaves it a string.
func parseArg(a string) any {
	if n, err := strconv.ParseInt(a, 10, 64); err == nil {
		return n
	}
	if strings.HasPrefix(strings.TrimSpace(a), "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(a), &obj); err == nil {
			return obj
		}
	}
	return a
}
