package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/prudhvinik1/kaucjaflow/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kf-pos:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
