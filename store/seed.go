package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/lifeflow/lifeflow/models"
	"github.com/lifeflow/lifeflow/schedule"
)

// SeedUser is the account created on first boot.
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email,omitempty"`
}

// SeedHabit is one default habit of the seed user.
type SeedHabit struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description,omitempty"`
	Icon           string `yaml:"icon,omitempty"`
	Color          string `yaml:"color,omitempty"`
	FrequencyType  string `yaml:"frequency_type"`
	CustomSchedule []int  `yaml:"custom_schedule,omitempty"`
	WeeklyTarget   int    `yaml:"weekly_target,omitempty"`
	TimesPerDay    int    `yaml:"times_per_day,omitempty"`
	AllowOverflow  bool   `yaml:"allow_overflow,omitempty"`
}

// SeedFile is the root of the seed YAML document.
type SeedFile struct {
	User   SeedUser    `yaml:"user"`
	Habits []SeedHabit `yaml:"habits"`
}

// LoadSeed reads and parses a seed file.
func LoadSeed(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses a seed document and validates every habit in it.
func ParseSeed(data []byte) (SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("YAML parse error: %w", err)
	}
	if strings.TrimSpace(seed.User.Username) == "" || seed.User.Password == "" {
		return seed, fmt.Errorf("seed user needs a username and a password")
	}
	for i, h := range seed.Habits {
		if _, err := h.definition().Build(); err != nil {
			return seed, fmt.Errorf("seed habit %d (%q): %w", i, h.Name, err)
		}
	}
	return seed, nil
}

func (h SeedHabit) definition() schedule.Definition {
	tpd := h.TimesPerDay
	if tpd == 0 {
		tpd = 1
	}
	return schedule.Definition{
		Name:           h.Name,
		FrequencyType:  schedule.FrequencyType(orDefault(h.FrequencyType, string(schedule.FrequencyDaily))),
		CustomSchedule: h.CustomSchedule,
		WeeklyTarget:   h.WeeklyTarget,
		TimesPerDay:    tpd,
		AllowOverflow:  h.AllowOverflow,
	}
}

// SeedResult reports what Seed created.
type SeedResult struct {
	UserID      uint
	UserCreated bool
	Habits      int
}

// Seed creates the seed user when missing, then its default habits when the
// user has none. hash turns the plaintext password into the stored hash.
func (s *HabitStore) Seed(ctx context.Context, seed SeedFile, hash func(string) (string, error)) (SeedResult, error) {
	var res SeedResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("username = ?", seed.User.Username).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pw, err := hash(seed.User.Password)
			if err != nil {
				return fmt.Errorf("hash seed password: %w", err)
			}
			user = models.User{Username: seed.User.Username, Email: seed.User.Email, PasswordHash: pw}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create seed user: %w", err)
			}
			res.UserCreated = true
		case err != nil:
			return fmt.Errorf("find seed user: %w", err)
		}
		res.UserID = user.ID

		var existing int64
		if err := tx.Model(&models.Habit{}).Where("user_id = ?", user.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("count seed habits: %w", err)
		}
		if existing > 0 {
			return nil
		}

		for i, sh := range seed.Habits {
			sched, err := sh.definition().Build()
			if err != nil {
				return fmt.Errorf("seed habit %q: %w", sh.Name, err)
			}
			row := models.Habit{
				UserID:      user.ID,
				Description: sh.Description,
				Icon:        orDefault(sh.Icon, models.DefaultHabitIcon),
				Color:       orDefault(sh.Color, models.DefaultHabitColor),
				SortOrder:   i + 1,
			}
			row.Apply(sched)
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create seed habit %q: %w", sh.Name, err)
			}
			res.Habits++
		}
		return nil
	})
	return res, err
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
