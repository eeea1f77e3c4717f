package main

import (
	"fmt"
	stdos "os"
)

func helper() {
	stdos.Exit(2)
}

func main() {
	fmt.Println("starting")
	if len(stdos.Args) > 3 {
		stdos.Exit(1) // want "avoid using os.Exit in main.main"
	}
	func() {
		stdos.Exit(3) // want "avoid using os.Exit in main.main"
	}()
	helper()
}
