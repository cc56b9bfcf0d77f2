package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"garagebook/internal/bootstrap"
	"garagebook/internal/models"
	"garagebook/internal/service"
	"garagebook/internal/validation"
)

var errUsage = errors.New("invalid usage")

type cli struct {
	rt       *bootstrap.Runtime
	identity *service.Identity
	out      io.Writer
	now      func() time.Time
}

// newCLI restores the persisted member before any command runs.
func newCLI(ctx context.Context, rt *bootstrap.Runtime, out io.Writer) (*cli, error) {
	id := rt.Identity()
	if err := id.Restore(ctx); err != nil {
		return nil, err
	}
	return &cli{rt: rt, identity: id, out: out, now: time.Now}, nil
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "register":
		return c.register(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "whoami":
		return c.whoami()
	case "profile":
		return c.profile(ctx, rest)
	case "add-vehicle":
		return c.addVehicle(ctx, rest)
	case "like":
		return c.like(ctx, rest)
	case "comment":
		return c.comment(ctx, rest)
	case "garage":
		return c.garage(ctx, rest)
	case "explore":
		return c.explore(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (c *cli) member() (*models.User, error) {
	u := c.identity.CurrentUser()
	if u == nil {
		return nil, models.ErrNotAuthenticated
	}
	return u, nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return models.NewValidationError("Email and password are required")
	}
	if err := c.identity.Login(ctx, strings.TrimSpace(*email), *password); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Signed in as %s\n", c.identity.CurrentUser().Username)
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	username := fs.String("username", "", "username")
	email := fs.String("email", "", "email")
	name := fs.String("name", "", "full name")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password again")
	if err := parse(fs, args); err != nil {
		return err
	}

	form := validation.Registration{
		Username:        strings.TrimSpace(*username),
		Email:           strings.TrimSpace(*email),
		FullName:        strings.TrimSpace(*name),
		Password:        *password,
		ConfirmPassword: *confirm,
	}
	if err := validation.ValidateRegistration(form); err != nil {
		return err
	}

	user, err := c.identity.Register(ctx, service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		FullName: form.FullName,
		Password: form.Password,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Welcome to GarageBook, %s (id %s)\n", user.Username, user.ID)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.identity.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

func (c *cli) whoami() error {
	u := c.identity.CurrentUser()
	if u == nil {
		fmt.Fprintln(c.out, "Not signed in")
		return nil
	}
	c.printProfile(u)
	return nil
}

func (c *cli) profile(ctx context.Context, args []string) error {
	fs := newFlagSet("profile")
	var patch models.ProfilePatch
	fs.Func("username", "new username", func(v string) error { patch.Username = ptr(v); return nil })
	fs.Func("email", "new email", func(v string) error { patch.Email = ptr(v); return nil })
	fs.Func("name", "new full name", func(v string) error { patch.FullName = ptr(v); return nil })
	fs.Func("bio", "new bio", func(v string) error { patch.Bio = ptr(v); return nil })
	fs.Func("avatar", "new avatar URL", func(v string) error { patch.Avatar = ptr(v); return nil })
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := c.member(); err != nil {
		return err
	}

	if !patch.Empty() {
		if err := validation.ValidateProfile(patch); err != nil {
			return err
		}
		if _, err := c.identity.UpdateProfile(ctx, patch); err != nil {
			return err
		}
	}
	c.printProfile(c.identity.CurrentUser())
	return nil
}

func (c *cli) addVehicle(ctx context.Context, args []string) error {
	fs := newFlagSet("add-vehicle")
	var in models.VehicleInput
	fs.StringVar(&in.Make, "make", "", "make")
	fs.StringVar(&in.Model, "model", "", "model")
	fs.IntVar(&in.Year, "year", 0, "model year")
	fs.StringVar(&in.Color, "color", "", "color")
	fs.StringVar(&in.Engine, "engine", "", "engine")
	fs.StringVar(&in.Transmission, "transmission", "", "transmission")
	fs.StringVar(&in.Drivetrain, "drivetrain", "", "drivetrain")
	fs.StringVar(&in.Description, "description", "", "description")
	mods := fs.String("mods", "", "comma-separated modifications")
	images := fs.String("images", "", "comma-separated image URLs")
	if err := parse(fs, args); err != nil {
		return err
	}
	me, err := c.member()
	if err != nil {
		return err
	}

	in.OwnerID = me.ID
	in.Modifications = validation.CleanList(strings.Split(*mods, ","))
	in.Images = validation.CleanList(strings.Split(*images, ","))
	if err := validation.ValidateVehicle(in, c.now()); err != nil {
		return err
	}

	v, err := c.rt.Garage.AddVehicle(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added %s (id %s)\n", v.DisplayName(), v.ID)
	return nil
}

func (c *cli) like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: like takes one vehicle id", errUsage)
	}
	me, err := c.member()
	if err != nil {
		return err
	}
	v, err := c.rt.Garage.LikeVehicle(ctx, args[0], me.ID)
	if err != nil {
		return err
	}
	if v == nil {
		return models.NewNotFoundError("Vehicle", args[0])
	}
	verb := "Unliked"
	if v.LikedBy(me.ID) {
		verb = "Liked"
	}
	fmt.Fprintf(c.out, "%s %s (%d likes)\n", verb, v.DisplayName(), len(v.Likes))
	return nil
}

func (c *cli) comment(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: comment takes a vehicle id and text", errUsage)
	}
	me, err := c.member()
	if err != nil {
		return err
	}
	text, err := validation.NormalizeComment(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	cm, err := c.rt.Garage.AddComment(ctx, args[0], me.ID, me.Username, me.Avatar, text)
	if err != nil {
		return err
	}
	if cm == nil {
		return models.NewNotFoundError("Vehicle", args[0])
	}
	fmt.Fprintf(c.out, "Commented on vehicle %s\n", args[0])
	return nil
}

func (c *cli) garage(ctx context.Context, args []string) error {
	var ownerID string
	switch len(args) {
	case 0:
		me, err := c.member()
		if err != nil {
			return err
		}
		ownerID = me.ID
	case 1:
		ownerID = args[0]
	default:
		return fmt.Errorf("%w: garage takes at most one member id", errUsage)
	}

	vs, err := c.rt.Garage.VehiclesByUser(ctx, ownerID)
	if err != nil {
		return err
	}
	stats, err := c.rt.Garage.Stats(ctx, ownerID)
	if err != nil {
		return err
	}
	c.printVehicles(vs)
	fmt.Fprintf(c.out, "%d vehicles, %d likes, %d comments\n", stats.Vehicles, stats.TotalLikes, stats.TotalComments)
	return nil
}

func (c *cli) explore(ctx context.Context, args []string) error {
	fs := newFlagSet("explore")
	var q service.ExploreQuery
	fs.StringVar(&q.Search, "q", "", "search text")
	fs.StringVar(&q.Make, "make", "", "exact make")
	fs.StringVar(&q.Sort, "sort", service.SortRecent, "recent, popular or year")
	fs.IntVar(&q.Limit, "limit", 20, "page size")
	fs.IntVar(&q.Offset, "offset", 0, "page offset")
	if err := parse(fs, args); err != nil {
		return err
	}
	switch q.Sort {
	case service.SortRecent, service.SortPopular, service.SortYear:
	default:
		return models.NewValidationError("sort must be recent, popular or year")
	}

	res, err := c.rt.Garage.Explore(ctx, q)
	if err != nil {
		return err
	}
	c.printVehicles(res.Vehicles)
	fmt.Fprintf(c.out, "%d of %d vehicles match\n", res.Matched, res.Total)
	return nil
}

func (c *cli) printProfile(u *models.User) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", u.ID)
	fmt.Fprintf(tw, "username\t%s\n", u.Username)
	fmt.Fprintf(tw, "email\t%s\n", u.Email)
	fmt.Fprintf(tw, "name\t%s\n", u.FullName)
	if u.Bio != "" {
		fmt.Fprintf(tw, "bio\t%s\n", u.Bio)
	}
	fmt.Fprintf(tw, "joined\t%s\n", u.JoinDate)
	fmt.Fprintf(tw, "followers\t%d\n", len(u.Followers))
	fmt.Fprintf(tw, "following\t%d\n", len(u.Following))
	_ = tw.Flush()
}

func (c *cli) printVehicles(vs []models.Vehicle) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVEHICLE\tLIKES\tCOMMENTS")
	for _, v := range vs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", v.ID, v.DisplayName(), len(v.Likes), len(v.Comments))
	}
	_ = tw.Flush()
}

func ptr(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
