package main

import (
	"fmt"
	"os"

	"github.com/vedran77/relaychat/internal/app"
	"github.com/vedran77/relaychat/internal/config"
	"go.uber.org/fx"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	fx.New(app.Module(cfg)).Run()
}
