package main

import (
	"os"

	"github.com/schmitthub/settle/internal/settle"
)

func main() {
	os.Exit(settle.Main())
}
