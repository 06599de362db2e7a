package main

import (
	"github.com/assettrack/notifsync/cmd"
	"github.com/jessevdk/go-flags"
	"log"
	"os"
)

func main() {
	parser := flags.NewParser(nil, flags.Default)

	_, err := parser.AddCommand("start",
		"start the notification daemon",
		"The start command registers this device with the notification backend and serves the local gateway",
		&cmd.Start{})
	if err != nil {
		log.Fatal(err)
	}
	_, err = parser.AddCommand("init",
		"initialize a data directory",
		"The init command creates and initializes a new data directory, config file and database.",
		&cmd.Init{})
	if err != nil {
		log.Fatal(err)
	}
	_, err = parser.AddCommand("devserver",
		"start a local notification backend",
		"The devserver command serves an in-memory implementation of the notification REST API. "+
			"Test notifications go through Firebase when credentials are configured and are looped back otherwise.",
		&cmd.DevServer{})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}
}
