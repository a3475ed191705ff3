package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lingoforge/qwen2mt/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cobra.CheckErr(cmd.NewCLI().ExecuteContext(ctx))
}
