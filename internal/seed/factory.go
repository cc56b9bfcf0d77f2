package seed

import (
	"fmt"
	"time"

	"garagebook/internal/idgen"
	"garagebook/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

var (
	drivetrains   = []string{"RWD", "FWD", "AWD", "4WD"}
	modifications = []string{
		"Cold Air Intake", "Exhaust System", "Coilovers", "Lowering Springs",
		"Aftermarket Wheels", "Performance Tune", "Big Brake Kit", "Downpipe",
		"Intercooler Upgrade", "Limited Slip Differential", "Roll Cage", "Widebody Kit",
	}
	carColors = []string{
		"Championship White", "Deep Purple Pearl", "Mineral Gray Metallic", "Rosso Corsa",
		"Midnight Blue", "Nardo Gray", "British Racing Green", "Sunset Orange",
	}
)

// Factory generates members and vehicles with gofakeit. A fixed seed makes
// the output reproducible.
type Factory struct {
	faker    *gofakeit.Faker
	password string
	maxDays  int
	now      func() time.Time
}

// NewFactory creates a Factory. password is the already hashed password
// every generated member gets.
func NewFactory(seed int64, password string) *Factory {
	return &Factory{
		faker:    gofakeit.New(seed),
		password: password,
		maxDays:  90,
		now:      time.Now,
	}
}

// User builds an unsaved member with a fresh id.
func (f *Factory) User(overrides ...func(*models.User)) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := fmt.Sprintf("%s%d", f.faker.Username(), f.faker.Number(100, 999))
	u := &models.User{
		ID:        idgen.New(),
		Username:  username,
		Email:     fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Password:  f.password,
		FullName:  first + " " + last,
		Bio:       f.faker.Sentence(10),
		Avatar:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		JoinDate:  f.pastTime().Format(time.DateOnly),
		Followers: []string{},
		Following: []string{},
	}
	for _, o := range overrides {
		o(u)
	}
	return u
}

// Vehicle builds an unsaved vehicle owned by ownerID with no likes or comments.
func (f *Factory) Vehicle(ownerID string, overrides ...func(*models.Vehicle)) *models.Vehicle {
	car := f.faker.Car()
	mods := make([]string, 0, 4)
	for _, m := range modifications {
		if len(mods) < 4 && f.faker.Bool() {
			mods = append(mods, m)
		}
	}
	v := &models.Vehicle{
		ID:            idgen.New(),
		OwnerID:       ownerID,
		Make:          car.Brand,
		Model:         car.Model,
		Year:          f.faker.Number(1965, f.now().Year()),
		Color:         f.faker.RandomString(carColors),
		Engine:        fmt.Sprintf("%.1fL %s", float64(f.faker.Number(10, 60))/10, car.Fuel),
		Transmission:  car.Transmission,
		Drivetrain:    f.faker.RandomString(drivetrains),
		Modifications: mods,
		Description:   f.faker.Paragraph(1, 2, 12, " "),
		Images:        []string{fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())},
		Likes:         []string{},
		Comments:      []models.Comment{},
		CreatedAt:     f.pastTime(),
	}
	for _, o := range overrides {
		o(v)
	}
	return v
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back).UTC().Truncate(time.Second)
}
