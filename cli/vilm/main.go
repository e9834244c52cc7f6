package main

import (
	"os"

	vilmcmder "github.com/papercomputeco/vilm/cmd/vilm"
)

func main() {
	cmd := vilmcmder.NewVilmCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
