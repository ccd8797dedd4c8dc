package main

import (
	"log"

	"github.com/thiagokokada/githistory/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("githistory: %v", err)
	}
}
