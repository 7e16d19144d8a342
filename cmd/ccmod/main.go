package main

import (
	"github.com/ccmod/ccmod/cmd/ccmod/internal"
)

func main() {
	internal.Execute()
}
