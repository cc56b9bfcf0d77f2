package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"garagebook/internal/middleware"
	"garagebook/internal/models"
	"garagebook/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// Options controls what Seed writes.
type Options struct {
	// SkipFixtures leaves out the built-in demo members and garages.
	SkipFixtures bool
	// FakeUsers generated members, each with FakeVehiclesPerUser vehicles.
	FakeUsers           int
	FakeVehiclesPerUser int
	// FakerSeed fixes gofakeit's output; zero picks 1.
	FakerSeed int64
	// PasswordCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	PasswordCost int
}

// Result counts what Seed wrote and what already existed.
type Result struct {
	Users    int
	Vehicles int
	Skipped  int
}

// Seed writes fixtures and generated data into set. Records that already
// exist are skipped, so running it twice is harmless.
func Seed(ctx context.Context, set repository.Set, opts Options) (*Result, error) {
	cost := opts.PasswordCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash fixture password: %w", err)
	}

	res := &Result{}
	if !opts.SkipFixtures {
		fx, err := LoadFixtures()
		if err != nil {
			return nil, err
		}
		if err := seedFixtures(ctx, set, fx, string(hash), res); err != nil {
			return nil, err
		}
	}

	if opts.FakeUsers > 0 {
		fakerSeed := opts.FakerSeed
		if fakerSeed == 0 {
			fakerSeed = 1
		}
		f := NewFactory(fakerSeed, string(hash))
		if err := seedGenerated(ctx, set, f, opts, res); err != nil {
			return nil, err
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", res.Users),
		slog.Int("vehicles", res.Vehicles),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func seedFixtures(ctx context.Context, set repository.Set, fx *Fixtures, hash string, res *Result) error {
	for i := range fx.Users {
		u := fx.Users[i]
		u.Password = hash
		created, err := createUser(ctx, set.Users, &u)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		res.count(created, &res.Users)
	}

	// Create prepends in the memory store, so walk backwards to keep file order.
	// Relational stores list by createdAt instead.
	for _, v := range slices.Backward(fx.Vehicles) {
		created, err := createVehicle(ctx, set.Vehicles, &v)
		if err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.ID, err)
		}
		res.count(created, &res.Vehicles)
	}
	return nil
}

func seedGenerated(ctx context.Context, set repository.Set, f *Factory, opts Options, res *Result) error {
	for range opts.FakeUsers {
		u := f.User()
		created, err := createUser(ctx, set.Users, u)
		if err != nil {
			return fmt.Errorf("seed generated user: %w", err)
		}
		res.count(created, &res.Users)
		if !created {
			continue
		}
		for range opts.FakeVehiclesPerUser {
			if _, err := createVehicle(ctx, set.Vehicles, f.Vehicle(u.ID)); err != nil {
				return fmt.Errorf("seed generated vehicle: %w", err)
			}
			res.Vehicles++
		}
	}
	return nil
}

func (r *Result) count(created bool, counter *int) {
	if created {
		*counter++
		return
	}
	r.Skipped++
}

func createUser(ctx context.Context, users repository.UserRepository, u *models.User) (bool, error) {
	existing, err := users.GetByEmail(ctx, u.Email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, models.ErrUserExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func createVehicle(ctx context.Context, vehicles repository.VehicleRepository, v *models.Vehicle) (bool, error) {
	_, err := vehicles.GetByID(ctx, v.ID)
	if err == nil {
		return false, nil
	}
	if !models.IsNotFound(err) {
		return false, err
	}
	if err := vehicles.Create(ctx, v); err != nil {
		return false, err
	}
	return true, nil
}
