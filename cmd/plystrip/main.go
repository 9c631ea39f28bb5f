// plystrip removes higher-order spherical-harmonic channels from PLY point
// clouds.
package main

import (
	"os"

	"github.com/hupe1980/plystrip/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
