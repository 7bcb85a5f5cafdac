package main

import (
	"github.com/pfrederiksen/seminar-watch/internal/cli"
)

func main() {
	cli.Execute()
}
