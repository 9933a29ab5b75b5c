package main

import (
	"os"

	"github.com/lishiyo/frontier-tower-coordination-bot-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
