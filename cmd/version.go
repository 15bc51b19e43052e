package cmd

// Version is set at build time via ldflags, e.g.
// go build -ldflags "-X github.com/xkilldash9x/hnpscan-cli/cmd.Version=1.0.0"
var Version = "dev"
