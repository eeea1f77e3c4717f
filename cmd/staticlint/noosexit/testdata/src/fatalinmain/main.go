package main

import (
	"errors"
	"log"
)

func main() {
	err := errors.New("boom")
	log.Println(err)
	log.Fatal(err)                // want "avoid using log.Fatal in main.main"
	log.Fatalf("failed: %v", err) // want "avoid using log.Fatalf in main.main"
	log.Fatalln(err)              // want "avoid using log.Fatalln in main.main"
}
