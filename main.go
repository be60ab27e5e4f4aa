package main

import (
	"fmt"
	"os"

	"github.com/S3ph1r/warroom-ingest/cmd/ingest"
	"github.com/S3ph1r/warroom-ingest/cmd/reconcile"
	registrycmd "github.com/S3ph1r/warroom-ingest/cmd/registry"
	"github.com/S3ph1r/warroom-ingest/cmd/root"
	"github.com/S3ph1r/warroom-ingest/cmd/schedule"
)

func init() {
	root.Init()
	reconcile.Init()
	registrycmd.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(registrycmd.Cmd)
	root.Cmd.AddCommand(schedule.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
