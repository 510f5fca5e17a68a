package main

import (
	"os"

	"github.com/cinemaxhq/reservation-service/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		os.Exit(1)
	}
}
