package main

import (
	"log"

	"github.com/ayushmittal62/cgcXodoo-team-astrive-sub000/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
