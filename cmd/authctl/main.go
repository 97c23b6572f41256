package main

import (
	"flag"
	"log"

	"github.com/akarpov87/authkeeper/internal/authctl"
)

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8080", "AuthKeeper server base URL")
	flag.Parse()

	app := authctl.NewApp(*serverURL)
	if err := app.Run(flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}
}
