package main

import (
	"fmt"
	"os"

	"github.com/corraldev/corral/cmd/corral"
)

func main() {
	if err := corral.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
