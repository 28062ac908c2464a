package main

import (
	"context"
	"os"

	"github.com/billie-coop/pqdash/internal/cli"
)

func main() {
	os.Exit(cli.Main(context.Background(), os.Args[1:]))
}
