// Package seed loads demo data into the repositories: the built-in fixture
// members and garages, plus optional generated ones for load testing.
package seed

import (
	_ "embed"
	"fmt"
	"slices"
	"time"

	"garagebook/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// FixturePassword is the plaintext password every fixture member logs in with.
const FixturePassword = "password123"

type fixtureUser struct {
	ID        string   `yaml:"id"`
	Username  string   `yaml:"username"`
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	FullName  string   `yaml:"fullName"`
	Bio       string   `yaml:"bio"`
	Avatar    string   `yaml:"avatar"`
	JoinDate  string   `yaml:"joinDate"`
	Followers []string `yaml:"followers"`
	Following []string `yaml:"following"`
}

type fixtureComment struct {
	ID             string    `yaml:"id"`
	AuthorID       string    `yaml:"authorId"`
	AuthorUsername string    `yaml:"authorUsername"`
	AuthorAvatar   string    `yaml:"authorAvatar"`
	Text           string    `yaml:"text"`
	CreatedAt      time.Time `yaml:"createdAt"`
}

type fixtureVehicle struct {
	ID            string           `yaml:"id"`
	OwnerID       string           `yaml:"ownerId"`
	Make          string           `yaml:"make"`
	Model         string           `yaml:"model"`
	Year          int              `yaml:"year"`
	Color         string           `yaml:"color"`
	Engine        string           `yaml:"engine"`
	Transmission  string           `yaml:"transmission"`
	Drivetrain    string           `yaml:"drivetrain"`
	Modifications []string         `yaml:"modifications"`
	Description   string           `yaml:"description"`
	Images        []string         `yaml:"images"`
	Likes         []string         `yaml:"likes"`
	Comments      []fixtureComment `yaml:"comments"`
	CreatedAt     time.Time        `yaml:"createdAt"`
}

// Fixtures is the decoded demo data set. Users carry plaintext passwords
// until Seed hashes them; vehicles are in store order.
type Fixtures struct {
	Users    []models.User
	Vehicles []models.Vehicle
}

// LoadFixtures decodes the embedded fixture file.
func LoadFixtures() (*Fixtures, error) {
	return ParseFixtures(fixturesYAML)
}

// ParseFixtures decodes a fixture document in the embedded file's format.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var doc struct {
		Users    []fixtureUser    `yaml:"users"`
		Vehicles []fixtureVehicle `yaml:"vehicles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	out := &Fixtures{}
	for _, u := range doc.Users {
		if u.ID == "" || u.Email == "" || u.Username == "" {
			return nil, fmt.Errorf("fixture user %q: id, email and username are required", u.Username)
		}
		out.Users = append(out.Users, models.User{
			ID:        u.ID,
			Username:  u.Username,
			Email:     u.Email,
			Password:  u.Password,
			FullName:  u.FullName,
			Bio:       u.Bio,
			Avatar:    u.Avatar,
			JoinDate:  u.JoinDate,
			Followers: nonNil(u.Followers),
			Following: nonNil(u.Following),
		})
	}

	for _, v := range doc.Vehicles {
		if v.ID == "" || v.OwnerID == "" {
			return nil, fmt.Errorf("fixture vehicle %q: id and ownerId are required", v.ID)
		}
		comments := make([]models.Comment, 0, len(v.Comments))
		for _, c := range v.Comments {
			comments = append(comments, models.Comment{
				ID:             c.ID,
				VehicleID:      v.ID,
				AuthorID:       c.AuthorID,
				AuthorUsername: c.AuthorUsername,
				AuthorAvatar:   c.AuthorAvatar,
				Text:           c.Text,
				CreatedAt:      c.CreatedAt.UTC(),
			})
		}
		out.Vehicles = append(out.Vehicles, models.Vehicle{
			ID:            v.ID,
			OwnerID:       v.OwnerID,
			Make:          v.Make,
			Model:         v.Model,
			Year:          v.Year,
			Color:         v.Color,
			Engine:        v.Engine,
			Transmission:  v.Transmission,
			Drivetrain:    v.Drivetrain,
			Modifications: nonNil(v.Modifications),
			Description:   v.Description,
			Images:        nonNil(v.Images),
			Likes:         nonNil(v.Likes),
			Comments:      comments,
			CreatedAt:     v.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
