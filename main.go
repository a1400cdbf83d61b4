package main

import (
	"fmt"
	"os"

	"github.com/scratchdata/sharelinks/cmd/sharelinks"
	"github.com/scratchdata/sharelinks/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sharelinks <config.yaml>")
		os.Exit(2)
	}

	conf, err := config.Load(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	storageServices, err := sharelinks.GetStorageServices(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to set up storage:", err)
		os.Exit(1)
	}

	sharelinks.Run(conf, storageServices)
}
