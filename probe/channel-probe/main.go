package main

import (
	"log"
	"os"

	"github.com/viant/rpcchannel/probe"
)

func main() {
	if err := probe.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
