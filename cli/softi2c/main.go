// Package main is the softi2c command.
package main

import (
	"log"
	"os"

	"go.viam.com/softi2c/cli"
)

func main() {
	if err := cli.NewApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
