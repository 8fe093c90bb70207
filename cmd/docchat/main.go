// Package main is the entry point for the docchat server.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/docchat/cmd/docchat/app"
)

func main() {
	app.NewApp().Run()
}
