package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("delegatectl failed", "err", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "delegatectl",
		Usage: "Create, revoke and inspect asset delegations on a registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "registry API base URL",
				Value:   "http://localhost:8080/api/v1",
				EnvVars: []string{"DELEGATECTL_API"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token whose sub is the caller account (see tokengen)",
				EnvVars: []string{"DELEGATECTL_TOKEN"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
				Value: 10 * time.Second,
			},
		},
		Commands: []*cli.Command{
			delegateCmd(),
			revokeCmd(),
			getCmd(),
			checkCmd(),
			listCmd(),
			eventsCmd(),
			devCmd(),
		},
	}
}

func clientFrom(cctx *cli.Context) *registryClient {
	return newRegistryClient(cctx.String("api"), cctx.String("token"), cctx.Duration("timeout"))
}

func printJSON(cctx *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cctx.App.Writer, string(out))
	return err
}

func requireArgs(cctx *cli.Context, names ...string) error {
	if cctx.NArg() != len(names) {
		return fmt.Errorf("expected arguments: %v", names)
	}
	return nil
}

// parseSeconds accepts a decimal second count or a Go duration string
func parseSeconds(s string) (string, error) {
	if _, err := strconv.ParseUint(s, 10, 64); err == nil {
		return s, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return "", fmt.Errorf("duration must be seconds or a Go duration: %w", err)
	}
	if d < time.Second {
		return "", fmt.Errorf("duration must be at least one second")
	}
	return strconv.FormatInt(int64(d/time.Second), 10), nil
}

func delegateCmd() *cli.Command {
	return &cli.Command{
		Name:      "delegate",
		Usage:     "Delegate usage of an asset you own",
		ArgsUsage: "<collection> <tokenId>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Usage: "delegate account", Required: true},
			&cli.StringFlag{Name: "duration", Usage: "seconds, or a Go duration such as 1h", Required: true},
		},
		Action: func(cctx *cli.Context) error {
			if err := requireArgs(cctx, "collection", "tokenId"); err != nil {
				return err
			}
			duration, err := parseSeconds(cctx.String("duration"))
			if err != nil {
				return err
			}
			out, err := clientFrom(cctx).Delegate(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1), cctx.String("to"), duration)
			if err != nil {
				return err
			}
			return printJSON(cctx, out)
		},
	}
}

func revokeCmd() *cli.Command {
	return &cli.Command{
		Name:      "revoke",
		Usage:     "Revoke the delegation of an asset you own",
		ArgsUsage: "<collection> <tokenId>",
		Action: func(cctx *cli.Context) error {
			if err := requireArgs(cctx, "collection", "tokenId"); err != nil {
				return err
			}
			if err := clientFrom(cctx).Revoke(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1)); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cctx.App.Writer, "revoked")
			return err
		},
	}
}

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show the stored delegation record of an asset",
		ArgsUsage: "<collection> <tokenId>",
		Action: func(cctx *cli.Context) error {
			if err := requireArgs(cctx, "collection", "tokenId"); err != nil {
				return err
			}
			out, err := clientFrom(cctx).Get(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1))
			if err != nil {
				return err
			}
			return printJSON(cctx, out)
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Check whether an account is the active delegate of an asset",
		ArgsUsage: "<collection> <tokenId> <account>",
		Action: func(cctx *cli.Context) error {
			if err := requireArgs(cctx, "collection", "tokenId", "account"); err != nil {
				return err
			}
			out, err := clientFrom(cctx).Check(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1), cctx.Args().Get(2))
			if err != nil {
				return err
			}
			return printJSON(cctx, out)
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored delegations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "only this collection"},
			&cli.StringFlag{Name: "delegate", Usage: "only this delegate"},
			&cli.BoolFlag{Name: "active", Usage: "only unexpired delegations"},
		},
		Action: func(cctx *cli.Context) error {
			query := url.Values{}
			if v := cctx.String("collection"); v != "" {
				query.Set("collection", v)
			}
			if v := cctx.String("delegate"); v != "" {
				query.Set("delegate", v)
			}
			if cctx.Bool("active") {
				query.Set("active", "true")
			}
			out, err := clientFrom(cctx).List(cctx.Context, query)
			if err != nil {
				return err
			}
			return printJSON(cctx, out)
		},
	}
}

func eventsCmd() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Page through Delegated and Revoked events",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "after", Usage: "only events with a larger sequence number"},
			&cli.IntFlag{Name: "limit", Usage: "maximum number of events", Value: 100},
		},
		Action: func(cctx *cli.Context) error {
			out, err := clientFrom(cctx).Events(cctx.Context, cctx.Uint64("after"), cctx.Int("limit"))
			if err != nil {
				return err
			}
			return printJSON(cctx, out)
		},
	}
}

func devCmd() *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Drive the in-memory ownership oracle of a development registry (mint and transfer need the dev role)",
		Subcommands: []*cli.Command{
			{
				Name:      "mint",
				Usage:     "Mint the next token id of a collection",
				ArgsUsage: "<collection>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Usage: "receiver, defaults to the caller"},
				},
				Action: func(cctx *cli.Context) error {
					if err := requireArgs(cctx, "collection"); err != nil {
						return err
					}
					out, err := clientFrom(cctx).Mint(cctx.Context, cctx.Args().Get(0), cctx.String("to"))
					if err != nil {
						return err
					}
					return printJSON(cctx, out)
				},
			},
			{
				Name:      "transfer",
				Usage:     "Transfer a token you own",
				ArgsUsage: "<collection> <tokenId>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "current owner", Required: true},
					&cli.StringFlag{Name: "to", Usage: "receiver", Required: true},
				},
				Action: func(cctx *cli.Context) error {
					if err := requireArgs(cctx, "collection", "tokenId"); err != nil {
						return err
					}
					out, err := clientFrom(cctx).Transfer(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1), cctx.String("from"), cctx.String("to"))
					if err != nil {
						return err
					}
					return printJSON(cctx, out)
				},
			},
			{
				Name:      "owner",
				Usage:     "Show the current owner of a token",
				ArgsUsage: "<collection> <tokenId>",
				Action: func(cctx *cli.Context) error {
					if err := requireArgs(cctx, "collection", "tokenId"); err != nil {
						return err
					}
					out, err := clientFrom(cctx).Owner(cctx.Context, cctx.Args().Get(0), cctx.Args().Get(1))
					if err != nil {
						return err
					}
					return printJSON(cctx, out)
				},
			},
		},
	}
}
