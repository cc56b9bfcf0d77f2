// Command garage is a single-member client for GarageBook. The signed-in
// member is persisted between runs under the garagebook_user record.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"garagebook/internal/bootstrap"
	"garagebook/internal/config"
)

const usage = `usage: garage <command> [flags]

commands:
  login        -email E -password P
  register     -username U -email E -name N -password P -confirm P
  logout
  whoami
  profile      [-username U] [-email E] [-name N] [-bio B] [-avatar URL]
  add-vehicle  -make M -model M -year Y -color C -engine E -transmission T -drivetrain D -description D [-mods a,b] [-images u1,u2]
  like         <vehicle-id>
  comment      <vehicle-id> <text>
  garage       [member-id]
  explore      [-q text] [-make M] [-sort recent|popular|year] [-limit N]
`

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SessionNamespace: "cli"})
	if err != nil {
		log.Printf("Failed to initialize runtime: %v", err)
		return 1
	}
	defer rt.Close()

	c, err := newCLI(ctx, rt, os.Stdout)
	if err != nil {
		log.Printf("Failed to restore session: %v", err)
		return 1
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return 1
	}
	return 0
}
