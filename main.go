// credkeep - local encrypted credential manager.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/credkeep/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdRegister:
		err = cli.HandleRegister(args)
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdPasswd:
		err = cli.HandlePasswd(args)
	case cli.CmdAccount:
		err = cli.HandleAccount(args)
	case cli.CmdVault:
		err = cli.HandleVault(args)
	case cli.CmdTwoFactor:
		err = cli.HandleTwoFactor(args)
	case cli.CmdExport:
		err = cli.HandleExport(args)
	case cli.CmdImport:
		err = cli.HandleImport(args)
	case cli.CmdAudit:
		err = cli.HandleAudit(args)
	case cli.CmdShell:
		err = cli.HandleShell(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		if args.JSON {
			_ = cli.NewJSONErrorResponse("", err).Print()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
