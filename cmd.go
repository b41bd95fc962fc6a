package main

import "github.com/photomirror/photomirror/config"

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Sync    struct {
		Library       string              `help:"source library directory path" short:"s" required:""`
		Mirror        string              `help:"mirror directory path" short:"m" required:""`
		Database      string              `help:"database path" short:"d" required:""`
		DryRun        bool                `help:"don't write any files, just print the output"`
		ExpiryDays    int                 `help:"days a deleted entity survives before hard deletion" default:"30"`
		Workers       int                 `help:"number of concurrent copy workers" default:"4"`
		MaxSize       config.SizeArgument `help:"skip copying files larger than this size"`
		NoCollections bool                `help:"skip folder and album reconciliation"`
		NoCopy        bool                `help:"skip the physical copy pass"`
		NoTree        bool                `help:"skip symlink tree regeneration"`
	} `cmd:"" help:"Manually synchronize a library into its mirror."`
	History struct {
		Database string `help:"database path" short:"d" required:""`
		Limit    int    `help:"number of runs to show" default:"10"`
	} `cmd:"" help:"Show recent synchronization runs."`
	Daemon struct {
		Config   string `help:"config file path" short:"c" required:""`
		Database string `help:"database path" short:"d" required:""`
		DryRun   bool   `help:"don't write any files, just print the output"`
	} `cmd:"" help:"Run the mirror service."`
}
