// main.go
//
// Real-estate marketplace service: listings, demands, entitlements and matching
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of propmarket.
// propmarket is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// propmarket is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with propmarket.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/tests/helpers"
	"github.com/sirupsen/logrus"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var dbOnly bool
	flag.BoolVar(&dbOnly, "db-only", false, "start only the database")
	flag.Parse()

	usage := `
Start MariaDB, Authorizer and propmarket in containers and keep them
running until interrupted.

Usage:

testcontainers [-h] [-db-only] [-f ENV_FILE_PATH]

  -db-only         start only an initialized MariaDB
  ENV_FILE_PATH    path to the .env file

example
  testcontainers -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		logrus.Infof("Loading environment variables from %s", envFilename)
		if err := config.LoadEnvFile(envFilename); err != nil {
			logrus.Fatalf("Failed to load environment variables: %v", err)
		}
	} else {
		logrus.Info("No environment file specified, using current environment variables")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	var testContainers *helpers.TestContainers
	go func() {
		var err error
		if dbOnly {
			testContainers, err = helpers.CreateDBContainer(nil)
		} else {
			testContainers, err = helpers.CreateAllTestContainers(nil)
		}
		if err != nil {
			logrus.Fatalf("Failed to create test containers: %v", err)
		}
	}()

	sig := <-sigs
	logrus.Infof("Received signal: %v, terminating test containers...", sig)
	if testContainers != nil {
		testContainers.Terminate(nil)
	}
}
