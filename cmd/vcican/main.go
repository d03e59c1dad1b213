package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/roffe/vcican/cmd/vcican/cmd"
	// registers the ControlCAN, SLCAN and virtual drivers
	_ "github.com/roffe/vcican/driver"
)

// shutdownGrace is how long a run gets to close the device after Ctrl+C.
const shutdownGrace = 45 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		s := <-sig
		log.Printf("got %v, stopping run", s)
		cancel()
		// the watcher normally ends the run long before this fires
		<-time.After(shutdownGrace)
		log.Fatal("device was not closed in time, exiting anyway")
	}()
	cmd.Execute(ctx)
}
