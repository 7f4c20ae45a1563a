// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// setupCommand writes configuration and prepares storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration, database and remote credentials",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the session database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:  "remote",
				Usage: "Store the auth service cookie from a browser cURL command",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser network tab",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
				},
				Action: r.SetupRemote,
			},
		},
	}
}

// authCommand handles the mirrored login session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Inspect and change the login session",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Reconcile and print the current session",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "remote",
						Usage: "Ask the auth service directly, bypassing the cache",
					},
				}, outputFlags()...),
				Action: r.AuthStatus,
			},
			{
				Name:  "login",
				Usage: "Open the login page and wait for the return on the local listener",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the login URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the login return",
						Value: r.config.Auth.LoginTimeout.Duration,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:      "callback",
				Usage:     "Apply a login return URL pasted from the browser",
				ArgsUsage: "<url>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.AuthCallback,
			},
			{
				Name:   "logout",
				Usage:  "Clear the local session and open the logout page",
				Action: r.AuthLogout,
			},
		},
	}
}

// cacheCommand inspects the tab-scoped session cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the cached session",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the cached session entry",
				Flags:  outputFlags(),
				Action: r.CacheShow,
			},
			{
				Name:  "clear",
				Usage: "Remove the cached session entry",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "purge",
						Usage: "Remove every key stored under the scope",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

func spectaclesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "spectacles",
		Usage:  "List reservation buttons for the current session",
		Flags:  outputFlags(),
		Action: r.Spectacles,
	}
}

func reserveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "reserve",
		Usage:     "Open the reservation page for a spectacle",
		ArgsUsage: "<spectacle-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "spectacle"},
		},
		Action: r.Reserve,
	}
}

// watchCommand launches the TUI
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Interactive view that follows the session as it changes",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Recheck interval, 0 disables periodic checks",
			},
		},
		Action: r.Watch,
	}
}
