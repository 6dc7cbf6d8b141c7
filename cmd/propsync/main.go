// Command propsync keeps a graph node property and a file mirror in step.
package main

import (
	"context"
	"os"

	"github.com/roach88/propsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
