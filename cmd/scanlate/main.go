package main

import (
	"os"

	"paper.fit/scanlate/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
