package main

import (
	"os"

	"github.com/marcoioli/proyecto-programacion3-grupo12/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
